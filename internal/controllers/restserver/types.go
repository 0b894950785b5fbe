package restserver

import "time"

// SessionResponse summarizes the loaded session
type SessionResponse struct {
	ID           string     `json:"id"`
	Path         string     `json:"path"`
	Date         string     `json:"date"`
	BinWidth     string     `json:"bin_width"`
	Profiles     int        `json:"profiles"`
	Levels       int        `json:"levels"`
	Windows      int        `json:"windows"`
	Start        time.Time  `json:"start"`
	End          time.Time  `json:"end"`
	TrackLengthM float64    `json:"track_length_m"`
	Bound        [4]float64 `json:"bound"`
	Fields       []string   `json:"fields"`
}

// WindowResponse is one synoptic window
type WindowResponse struct {
	Index   int       `json:"index"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Center  time.Time `json:"center"`
	Members int       `json:"members"`
}

// WindowDetailResponse adds the member observations and their weights
type WindowDetailResponse struct {
	WindowResponse
	Observations []int       `json:"observations"`
	Times        []time.Time `json:"times"`
	Weights      []float64   `json:"weights"`
}

// FieldResponse describes a dataset or sampled variable
type FieldResponse struct {
	Name    string `json:"name"`
	Shape   []int  `json:"shape"`
	Sampled bool   `json:"sampled"`
}

// CurtainResponse is a curtain image. Rows holds [][]float64 for MessagePack
// and [][]*float64 with nulls for JSON.
type CurtainResponse struct {
	Field  string     `json:"field"`
	Title  string     `json:"title,omitempty"`
	XLabel string     `json:"xlabel"`
	YLabel string     `json:"ylabel"`
	Extent [4]float64 `json:"extent"`
	Aspect float64    `json:"aspect"`
	Scale  string     `json:"scale"`
	VMin   *float64   `json:"vmin"`
	VMax   *float64   `json:"vmax"`
	Rows   any        `json:"rows"`
}
