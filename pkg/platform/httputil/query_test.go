package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idbcrm/pkg/domain-errors"
)

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?limit=20&bad=-1&all=true&status=new,hot&status=cold", nil)

	n, err := QueryInt(r, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = QueryInt(r, "offset", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = QueryInt(r, "bad", 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	assert.True(t, QueryBool(r, "all"))
	assert.False(t, QueryBool(r, "missing"))
	assert.Equal(t, []string{"new", "hot", "cold"}, QueryList(r, "status"))
}
