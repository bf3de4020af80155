// AngelaMos | 2026
// dto.go

package avatar

const maxSeedLength = 256

type GenerateRequest struct {
	Seed    string `json:"seed"    validate:"max=256"`
	Variant string `json:"variant" validate:"omitempty,oneof=letter gradient"`
}

type Avatar struct {
	Key     string  `json:"key"`
	URL     string  `json:"url"`
	Variant Variant `json:"variant"`
}
