package config

// ConfigBackend is where persisted settings live. macOS keeps them in
// UserDefaults through the `defaults` CLI; everything else uses a JSON file
// under the XDG config directory.
//
// Set receives a string, int or float64 and stores it in the backend's
// native type. Get returns the stored value as the backend holds it.
type ConfigBackend interface {
	Get(key string) (val any, ok bool, err error)
	Set(key string, val any) error
	Delete(key string) error
}
