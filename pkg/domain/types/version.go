package types

// Version is overwritten at build time by -ldflags "-X ...types.Version=..."
var Version = "dev"
