package models

// CatalogEntity is the catalog-ready wire envelope. Field names and the
// ACTIVE status are a bit-exact contract with the downstream catalog;
// do not rename the json tags.
type CatalogEntity struct {
	TypeName         string         `json:"typeName"`
	Attributes       map[string]any `json:"attributes"`
	CustomAttributes map[string]any `json:"customAttributes"`
	Status           string         `json:"status"`
	CreatedBy        string         `json:"createdBy"`
	UpdatedBy        string         `json:"updatedBy"`
	CreateTime       int64          `json:"createTime"`
	UpdateTime       int64          `json:"updateTime"`
}

// IsEmpty reports whether the entity is the zero placeholder used when a
// single record's mapping failed.
func (e CatalogEntity) IsEmpty() bool {
	return e.TypeName == "" && len(e.Attributes) == 0 && len(e.CustomAttributes) == 0
}
