package forecast

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	MethodDowETS = "dow-ets"
	naiveSuffix  = "-naive"
)

// Version identifies the method and parameter set behind a forecast row.
// Its string form is "<method>-<hash>" with "-naive" appended for the
// fallback estimate.
type Version struct {
	Method string
	Hash   string
	Naive  bool

	override string
}

func NewVersion(method string, p Params) Version {
	return Version{
		Method: method,
		Hash:   fmt.Sprintf("%08x", uint32(xxhash.Sum64String(p.canonical()))),
	}
}

// OverrideVersion uses tag verbatim, for operators pinning a model_ver.
func OverrideVersion(tag string) Version {
	return Version{Method: tag, override: tag}
}

func (v Version) WithNaive() Version {
	v.Naive = true
	return v
}

func (v Version) String() string {
	s := v.override
	if s == "" {
		s = v.Method
		if v.Hash != "" {
			s += "-" + v.Hash
		}
	}
	if v.Naive {
		s += naiveSuffix
	}
	return s
}

// ParseVersion splits a stored model_ver back into its parts so metrics can
// be grouped by method.
func ParseVersion(s string) Version {
	var v Version
	if strings.HasSuffix(s, naiveSuffix) {
		v.Naive = true
		s = strings.TrimSuffix(s, naiveSuffix)
	}
	if i := strings.LastIndex(s, "-"); i > 0 && isHash(s[i+1:]) {
		v.Method, v.Hash = s[:i], s[i+1:]
		return v
	}
	v.Method = s
	v.override = s
	return v
}

func isHash(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
