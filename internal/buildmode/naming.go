package buildmode

import "fmt"

// AssetClass identifies a kind of emitted artifact.
type AssetClass string

const (
	Script AssetClass = "script"
	Style  AssetClass = "style"
	Chunk  AssetClass = "chunk"
	Asset  AssetClass = "asset"
)

// HashToken is the placeholder name used for the hash segment.
type HashToken string

const (
	TokenHash        HashToken = "hash"
	TokenContentHash HashToken = "contenthash"
)

// Valid reports whether the token is recognised.
func (t HashToken) Valid() bool {
	return t == TokenHash || t == TokenContentHash
}

// NamingPolicy yields filename templates for every asset class. The hash
// decision is taken once so that no class can drift from the others.
type NamingPolicy struct {
	hashed bool
	token  HashToken
}

// NewNamingPolicy returns a policy that embeds the hash segment when hashed
// is true. An unrecognised token falls back to TokenHash.
func NewNamingPolicy(hashed bool, token HashToken) NamingPolicy {
	if !token.Valid() {
		token = TokenHash
	}
	return NamingPolicy{hashed: hashed, token: token}
}

func (p NamingPolicy) Hashed() bool {
	return p.hashed
}

// Pattern returns the filename template for the given asset class.
func (p NamingPolicy) Pattern(class AssetClass) string {
	switch class {
	case Style:
		return p.stem("[name]") + ".css"
	case Chunk:
		return p.stem("chunks/[name]") + ".js"
	case Asset:
		return p.stem("assets/[name]") + "[ext]"
	default:
		return p.stem("[name]") + ".js"
	}
}

func (p NamingPolicy) stem(base string) string {
	if !p.hashed {
		return base
	}
	return fmt.Sprintf("%s.[%s]", base, p.token)
}
