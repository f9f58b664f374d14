package cards

// Metadata describes one card in the local index.
type Metadata struct {
	Name            string   `json:"name"`
	SetCode         string   `json:"set_code"`
	CollectorNumber string   `json:"collector_number"`
	Colors          []string `json:"colors"`
	ColorIdentity   []string `json:"color_identity"`
}

// Recognition is the outcome of resolving one captured frame to a card
// identity. A zero Confidence with an empty Name signals total recognition
// failure; identity fields are either all populated or all empty.
type Recognition struct {
	Name            string
	SetCode         string
	CollectorNumber string
	Confidence      float64
	Colors          []string
	ColorIdentity   []string
}

// Recognized reports whether the result carries a card identity.
func (r Recognition) Recognized() bool {
	return r.Name != ""
}
