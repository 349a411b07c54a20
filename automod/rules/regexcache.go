package rules

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Compiled patterns derived from rule parameters. Rule lists change rarely, so almost every lookup is a hit.
var patternCache *lru.Cache[string, *regexp.Regexp]

func init() {
	c, err := lru.New[string, *regexp.Regexp](1024)
	if err != nil {
		panic(err)
	}
	patternCache = c
}

func cachedRegexp(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Add(pattern, re)
	return re, nil
}
