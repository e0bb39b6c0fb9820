package profile

// Data 表示存储在 Portfolio.Data(JSONB) 中的结构化个人资料，
// 同时也是简历解析器的输出结构。
type Data struct {
	Name       string       `json:"name" binding:"required,min=2"`
	Headline   string       `json:"headline"`
	Bio        string       `json:"bio"`
	Location   string       `json:"location,omitempty"`
	Skills     []string     `json:"skills"`
	Projects   []Project    `json:"projects" binding:"dive"`
	Experience []Experience `json:"experience" binding:"dive"`
	Education  []Education  `json:"education" binding:"dive"`
	Contact    Contact      `json:"contact"`
}

// Project 描述作品集中的单个项目。
type Project struct {
	ID          string   `json:"id" binding:"required"`
	Title       string   `json:"title" binding:"required,min=2"`
	Description string   `json:"description" binding:"required,min=4"`
	Tech        []string `json:"tech"`
	Link        string   `json:"link,omitempty" binding:"omitempty,url"`
	Repo        string   `json:"repo,omitempty" binding:"omitempty,url"`
}

// Experience 描述一段工作经历。
type Experience struct {
	ID        string   `json:"id" binding:"required"`
	Company   string   `json:"company"`
	Role      string   `json:"role"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate,omitempty"`
	Bullets   []string `json:"bullets"`
}

// Education 描述一段教育经历。
type Education struct {
	ID        string `json:"id" binding:"required"`
	School    string `json:"school"`
	Degree    string `json:"degree"`
	StartYear string `json:"startYear"`
	EndYear   string `json:"endYear,omitempty"`
}

// Contact 描述联系方式，链接字段允许为空。
type Contact struct {
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty" binding:"omitempty,url"`
	GitHub   string `json:"github,omitempty" binding:"omitempty,url"`
	LinkedIn string `json:"linkedin,omitempty" binding:"omitempty,url"`
}

// RenderConfig 是模板渲染设置（颜色、分区开关等），结构由模板决定，
// 这里只约束为 JSON 对象。
type RenderConfig map[string]any

// Normalize 将 nil 切片替换为空切片，保证序列化结果为 [] 而非 null。
func (d *Data) Normalize() {
	if d.Skills == nil {
		d.Skills = []string{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	if d.Experience == nil {
		d.Experience = []Experience{}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	for i := range d.Projects {
		if d.Projects[i].Tech == nil {
			d.Projects[i].Tech = []string{}
		}
	}
	for i := range d.Experience {
		if d.Experience[i].Bullets == nil {
			d.Experience[i].Bullets = []string{}
		}
	}
}
