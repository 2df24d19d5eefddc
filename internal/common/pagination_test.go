package common_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tokoanjar/pos-api/internal/common"
)

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/products?page=3&limit=25", nil)
	page, perPage := common.ParsePagination(r, 20)
	require.Equal(t, 3, page)
	require.Equal(t, 25, perPage)

	r = httptest.NewRequest("GET", "/api/v1/products", nil)
	page, perPage = common.ParsePagination(r, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)

	r = httptest.NewRequest("GET", "/api/v1/products?page=0&limit=-5", nil)
	page, perPage = common.ParsePagination(r, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)

	r = httptest.NewRequest("GET", "/api/v1/products?limit=9999", nil)
	_, perPage = common.ParsePagination(r, 20)
	require.Equal(t, common.MaxPageSize, perPage)
}
