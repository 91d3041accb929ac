package domain

// NamespaceConfig is the optional tenant configuration supplied at
// registration. Zero values are replaced with defaults by the provisioner.
type NamespaceConfig struct {
	Name         string
	DisplayName  string
	Description  string
	MaxUsers     int
	MaxStorageMB int
}
