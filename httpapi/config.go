package httpapi

// Config defines the control API settings.
type Config struct {
	Addr       string
	BasePath   string
	HubHistory int
}
