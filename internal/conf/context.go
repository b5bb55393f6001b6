package conf

import "github.com/spf13/viper"

// Context carries the viper instance commands bind their flags to and the
// settings loaded from it before a command runs.
type Context struct {
	Viper    *viper.Viper
	Settings *Settings
}

// NewContext creates a Context with defaults and environment bindings
// applied. Settings stays nil until Load.
func NewContext() (*Context, error) {
	v, err := NewViper()
	if err != nil {
		return nil, err
	}
	return &Context{Viper: v}, nil
}

// Load reads configFile (or the searched config paths) and stores the
// resulting settings on the context.
func (c *Context) Load(configFile string) error {
	settings, err := Load(c.Viper, configFile)
	if err != nil {
		return err
	}
	c.Settings = settings
	return nil
}
