package mongodb

import (
	options "github.com/kart-io/memoryctl/pkg/options/mongodb"
	"github.com/spf13/pflag"
)

// Options is the component's configuration type, shared with the rest of
// memoryctl's CLI/config-file options machinery so there is exactly one
// MongoDB options definition in the module.
type Options = options.Options

// NewOptions creates a new Options object with default values.
var NewOptions = options.NewOptions

// AddFlags adds flags for MongoDB options to the specified FlagSet under a
// single prefix, e.g. "mongodb.".
func AddFlags(o *Options, fs *pflag.FlagSet, namePrefix string) {
	o.AddFlags(fs, namePrefix)
}
