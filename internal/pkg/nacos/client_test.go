package nacos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerAddrs(t *testing.T) {
	cfgs, err := ParseServerAddrs("10.0.0.1:8848, 10.0.0.2:8848")
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.Equal(t, "10.0.0.2", cfgs[1].IpAddr)
	assert.Equal(t, uint64(8848), cfgs[1].Port)
}

func TestParseServerAddrs_Invalid(t *testing.T) {
	for _, in := range []string{"", "nohost", "h:notaport", "a:1:2"} {
		_, err := ParseServerAddrs(in)
		assert.Error(t, err, in)
	}
}
