package cache

// Keyer derives cache keys.
type Keyer interface {
	// ZonesKey identifies the last zone set loaded from a source.
	ZonesKey(source string) string

	// SceneKey identifies a laid-out scene.
	SceneKey(zonesHash string, opts SceneKeyOpts) string

	// ArtifactKey identifies one rendered output format of a scene.
	ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string
}

// SceneKeyOpts are the layout inputs besides the zones.
type SceneKeyOpts struct {
	Width            float64    `json:"width"`
	Height           float64    `json:"height"`
	InnerPadding     float64    `json:"inner_padding"`
	OuterPadding     float64    `json:"outer_padding"`
	CommentCharWidth float64    `json:"comment_char_width"`
	CornerRadius     float64    `json:"corner_radius"`
	Thresholds       [3]float64 `json:"thresholds"`
}

// ArtifactKeyOpts are the rendering inputs besides the scene.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Interactive bool    `json:"interactive"`
	API         string  `json:"api,omitempty"`
	Title       string  `json:"title,omitempty"`
	Scale       float64 `json:"scale,omitempty"`
	Cols        int     `json:"cols,omitempty"`
	Rows        int     `json:"rows,omitempty"`
}

// DefaultKeyer produces "<kind>:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) ZonesKey(source string) string {
	return hashKey("zones", source)
}

func (DefaultKeyer) SceneKey(zonesHash string, opts SceneKeyOpts) string {
	return hashKey("scene", zonesHash, opts)
}

func (DefaultKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", sceneHash, opts)
}
