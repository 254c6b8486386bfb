// Copyright (C) 2019 Storj Labs, Inc.
// See LICENSE for copying information.

package storelogger

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"storj.io/metastore/storage/teststore"
	"storj.io/metastore/storage/testsuite"
)

func TestSuite(t *testing.T) {
	store := teststore.New()
	logged := New(zaptest.NewLogger(t), store)
	testsuite.RunTests(t, logged)
}
