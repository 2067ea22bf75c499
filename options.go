package archive

// MemberOption configures how a single member is written.
type MemberOption func(*memberOptions)

type memberOptions struct {
	// store disables per-member compression. Formats without per-member
	// compression ignore it silently.
	store bool
}

func applyMemberOptions(opts []MemberOption) memberOptions {
	var o memberOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Uncompressed writes the member without per-member compression. For ZIP
// archives this selects the store method instead of deflate; TAR and
// directory backends, which never compress members individually, ignore it.
func Uncompressed() MemberOption {
	return func(o *memberOptions) {
		o.store = true
	}
}

// GlobOption configures pattern matching for Glob.
type GlobOption func(*globOptions)

type globOptions struct {
	foldCase bool
}

func applyGlobOptions(opts []GlobOption) globOptions {
	var o globOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FoldCase makes the pattern match case-insensitively.
// Matching is case-sensitive by default.
func FoldCase() GlobOption {
	return func(o *globOptions) {
		o.foldCase = true
	}
}
