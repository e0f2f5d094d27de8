package models

// Rubrique is a hierarchical content category.
type Rubrique struct {
	ID          int64      `json:"id"`
	Name        string     `json:"nom"`
	Slug        string     `json:"slug,omitempty"`
	Description string     `json:"description,omitempty"`
	ParentID    *int64     `json:"parentId"`
	Children    []Rubrique `json:"sousRubriques,omitempty"`
}
