// Package template 提供作品集可用模板的静态目录。
package template

// Template 描述一个渲染模板的元信息。
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Preview     string   `json:"preview"`
	Colors      []string `json:"colors"`
	Sections    []string `json:"sections"`
	Description string   `json:"description"`
}

// Registry 是模板目录的查询接口。
type Registry interface {
	Exists(id string) bool
	Get(id string) (Template, bool)
	List() []Template
}

var builtin = []Template{
	{
		ID:          "modern",
		Name:        "Modern Gradient",
		Preview:     "/templates/modern.png",
		Colors:      []string{"#0ea5e9", "#22d3ee", "#6366f1"},
		Sections:    []string{"about", "skills", "projects", "contact"},
		Description: "Bold gradients, large cards, and skill badges.",
	},
	{
		ID:          "minimal",
		Name:        "Minimal Monotype",
		Preview:     "/templates/minimal.png",
		Colors:      []string{"#0f172a", "#1e293b", "#334155"},
		Sections:    []string{"about", "projects", "contact"},
		Description: "Editorial typography with ultra-clean layout.",
	},
	{
		ID:          "professional",
		Name:        "Professional Split",
		Preview:     "/templates/professional.png",
		Colors:      []string{"#0f172a", "#2dd4bf", "#f97316"},
		Sections:    []string{"hero", "experience", "projects"},
		Description: "Executive summary with career timeline.",
	},
}

// Static 是内存中的只读模板目录。
type Static struct {
	order []string
	byID  map[string]Template
}

// NewStatic 使用给定模板构造目录；不传参数时使用内置模板。
func NewStatic(templates ...Template) *Static {
	if len(templates) == 0 {
		templates = builtin
	}
	s := &Static{byID: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if _, dup := s.byID[t.ID]; dup {
			continue
		}
		s.order = append(s.order, t.ID)
		s.byID[t.ID] = t
	}
	return s
}

func (s *Static) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *Static) Get(id string) (Template, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// List 按注册顺序返回模板副本。
func (s *Static) List() []Template {
	out := make([]Template, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
