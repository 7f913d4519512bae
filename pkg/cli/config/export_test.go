package config

import "io"

// SetWriter redirects the log output of the configured logger
func (c *Logger) SetWriter(w io.Writer) {
	c.writer = w
}
