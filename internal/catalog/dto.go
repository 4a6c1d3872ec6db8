// AngelaMos | 2026
// dto.go

package catalog

type AddBookRequest struct {
	Title      string `validate:"required,min=1,max=300"`
	Subject    string `validate:"required,min=1,max=200"`
	Semester   int    `validate:"required,min=1,max=8"`
	Author     string `validate:"omitempty,max=200"`
	CoverImage string `validate:"omitempty,url,max=2048"`
	PDFURL     string `validate:"omitempty,max=2048"`
}

type SelectSemesterRequest struct {
	Semester int `json:"semester" validate:"required,min=1,max=8"`
}

type CatalogResponse struct {
	Books            []Book    `json:"books"`
	Subjects         []Subject `json:"subjects"`
	Loading          bool      `json:"loading"`
	SelectedSemester int       `json:"selected_semester"`
}

type AddBookResponse struct {
	Book   *Book   `json:"book"`
	Stored *Stored `json:"stored,omitempty"`
}
