package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// BankTreeKey returns the cache key for a reconstructed bank tree
func (r *CacheKeyStruct) BankTreeKey(bankID string) string {
	return fmt.Sprintf("qbank:%s:tree", bankID)
}

// BankGenerationKey returns the key of the counter bumped on every
// invalidation of a bank tree. It carries no TTL.
func (r *CacheKeyStruct) BankGenerationKey(bankID string) string {
	return fmt.Sprintf("qbank:%s:gen", bankID)
}

var CacheKey = NewCacheKeyStruct()
