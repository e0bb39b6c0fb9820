package profile

// Example 返回固定的示例资料；未配置外部解析能力时作为解析结果返回，
// 由用户在构建器中手动修改。
func Example() Data {
	return Data{
		Name:     "Your Name",
		Headline: "Full-stack Developer",
		Bio:      "Detail-oriented engineer with a passion for building delightful product experiences.",
		Location: "Remote",
		Skills:   []string{"React", "TypeScript", "Next.js", "Node.js", "PostgreSQL"},
		Projects: []Project{
			{
				ID:          "proj-1",
				Title:       "AI Portfolio Builder",
				Description: "Multi-tenant platform that generates developer portfolios using AI.",
				Tech:        []string{"Next.js", "Prisma", "Tailwind"},
			},
		},
		Experience: []Experience{
			{
				ID:        "exp-1",
				Company:   "Acme Corp",
				Role:      "Senior Software Engineer",
				StartDate: "2022",
				EndDate:   "Present",
				Bullets: []string{
					"Led the delivery of a customer-facing portal used by 30k+ users.",
					"Mentored 5 engineers and standardized the component library.",
				},
			},
		},
		Education: []Education{
			{
				ID:        "edu-1",
				School:    "Example University",
				Degree:    "B.S. Computer Science",
				StartYear: "2014",
				EndYear:   "2018",
			},
		},
		Contact: Contact{
			Email: "you@example.com",
		},
	}
}
