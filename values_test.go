// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package apitoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_Roundtrip(t *testing.T) {
	t.Parallel()
	t.Run("nil-stays-null", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		var l StringList
		v, err := l.Value()
		require.NoError(err)
		assert.Nil(v)

		var got StringList
		require.NoError(got.Scan(nil))
		assert.Nil(got)
	})
	t.Run("values-roundtrip", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		l := StringList{"read", "write", "*"}
		v, err := l.Value()
		require.NoError(err)
		assert.Equal(`["read","write","*"]`, v)

		var got StringList
		require.NoError(got.Scan(v))
		assert.Equal(l, got)
	})
	t.Run("scan-bytes", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		var got StringList
		require.NoError(got.Scan([]byte(`["a"]`)))
		assert.Equal(StringList{"a"}, got)
	})
	t.Run("scan-unsupported-type", func(t *testing.T) {
		var got StringList
		assert.Error(t, got.Scan(42))
	})
}

func TestStringList_Contains(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	l := StringList{"read", "write"}
	assert.True(l.Contains("read"))
	assert.False(l.Contains("admin"))
	assert.False(StringList(nil).Contains("read"))
}

func TestStringList_Clone(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Nil(StringList(nil).Clone())
	l := StringList{"a", "b"}
	cp := l.Clone()
	cp[0] = "z"
	assert.Equal(StringList{"a", "b"}, l)
}

func TestStringMap_Roundtrip(t *testing.T) {
	t.Parallel()
	t.Run("nil-stays-null", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		var m StringMap
		v, err := m.Value()
		require.NoError(err)
		assert.Nil(v)

		var got StringMap
		require.NoError(got.Scan(nil))
		assert.Nil(got)
	})
	t.Run("values-roundtrip", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		m := StringMap{"team": "billing", "mode": "cascade"}
		v, err := m.Value()
		require.NoError(err)

		var got StringMap
		require.NoError(got.Scan(v))
		assert.Equal(m, got)
	})
	t.Run("scan-unsupported-type", func(t *testing.T) {
		var got StringMap
		assert.Error(t, got.Scan(3.14))
	})
}

func TestStringMap_Clone(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Nil(StringMap(nil).Clone())
	m := StringMap{"k": "v"}
	cp := m.Clone()
	cp["k"] = "other"
	assert.Equal(StringMap{"k": "v"}, m)
}
