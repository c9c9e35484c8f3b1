package auditlog

import "github.com/spf13/pflag"

// SecretAnnotation marks a flag whose value is never written to the
// history.
const SecretAnnotation = "nodectl_secret"

const redacted = "<redacted>"

// MarkSecret annotates the named flags of fs with SecretAnnotation. It
// panics if a flag does not exist.
func MarkSecret(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := fs.SetAnnotation(name, SecretAnnotation, []string{"true"}); err != nil {
			panic(err)
		}
	}
}

// FlagArgs renders the flags explicitly set on fs, in name order, as they
// are stored in the history. Secret values are redacted and booleans are
// written without a value when true.
func FlagArgs(fs *pflag.FlagSet) []string {
	var args []string
	fs.Visit(func(f *pflag.Flag) {
		name := "--" + f.Name
		switch {
		case len(f.Annotations[SecretAnnotation]) > 0:
			args = append(args, name, redacted)
		case f.Value.Type() == "bool":
			if f.Value.String() != "true" {
				name += "=" + f.Value.String()
			}
			args = append(args, name)
		default:
			args = append(args, name, f.Value.String())
		}
	})
	return args
}
