package model

// MaxAttributeSlots caps each free-text attribute list. The downstream ERP
// exposes exactly this many attribute columns per category, so anything the
// scraper finds beyond the cap is dropped at extraction time.
const MaxAttributeSlots = 3

// Record is the raw attribute bag extracted for one catalog link. The
// scraper produces it once per detail page; the normalizer rewrites mapped
// field values in place, and it is immutable thereafter.
type Record struct {
	URL          string `json:"url"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Manufacturer string `json:"manufacturer"`
	Origin       string `json:"origin"`
	Irradiation  string `json:"irradiation"`
	THC          string `json:"thc"`
	CBD          string `json:"cbd"`
	Genetic      string `json:"genetic"`
	Cultivar     string `json:"cultivar"`
	ProductGroup string `json:"product_group"`
	ImageURL     string `json:"image_url"`
	ImagePath    string `json:"image_path,omitempty"`

	Effects     []string `json:"effects,omitempty"`
	Aromas      []string `json:"aromas,omitempty"`
	Terpenes    []string `json:"terpenes,omitempty"`
	MedicalUses []string `json:"medical_uses,omitempty"`
}

// Empty reports whether the scrape produced nothing usable. Records without
// a product name are not queued.
func (r *Record) Empty() bool {
	return r == nil || r.Name == ""
}
