// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keydb

import (
	"testing"

	"github.com/hushcomm/hush/session"
	"github.com/hushcomm/hush/session/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t testing.TB) session.Store {
		return createDB(t)
	})
}
