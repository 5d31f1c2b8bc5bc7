package cache

// ScopedKeyer prefixes every key of an inner [Keyer], so that several
// deployments or tenants can share one backend:
//
//	prod := NewScopedKeyer(NewDefaultKeyer(), "zonemap:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner; a nil inner means [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ZonesKey(source string) string {
	return k.prefix + k.inner.ZonesKey(source)
}

func (k *ScopedKeyer) SceneKey(zonesHash string, opts SceneKeyOpts) string {
	return k.prefix + k.inner.SceneKey(zonesHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sceneHash, opts)
}
