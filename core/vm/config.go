// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.
//
// The go-equa library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-equa library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-equa library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"github.com/equa/go-equa-codecache/common"
	"github.com/equa/go-equa-codecache/log"
)

// CacheConfig are the configuration options of the shared code analysis cache.
type CacheConfig struct {
	MaxSize uint64 `toml:",omitempty"` // Byte budget of the cache
}

// DefaultCacheConfig contains the default settings of the analysis cache.
var DefaultCacheConfig = CacheConfig{
	MaxSize: DefaultCacheSize,
}

// Sanitize checks the provided user configurations and changes anything that's
// unreasonable or unworkable.
func (config CacheConfig) Sanitize() CacheConfig {
	conf := config
	if conf.MaxSize == 0 {
		log.Warn("Sanitizing invalid analysis cache size", "provided", common.StorageSize(conf.MaxSize), "updated", common.StorageSize(DefaultCacheSize))
		conf.MaxSize = DefaultCacheSize
	}
	return conf
}
