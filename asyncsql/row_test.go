package asyncsql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

func Test_Row_Len(t *testing.T) {
	assert.Equal(t, 0, asyncsql.Row{}.Len())
	assert.Equal(t, 2, asyncsql.Row{int64(1), "name"}.Len())
}

func Test_RowMapping_ShouldPairKeysWithValues(t *testing.T) {
	// act
	mapping := asyncsql.RowMapping([]string{"id", "name"}, asyncsql.Row{int64(1), "first"})

	// assert
	assert.Equal(t, map[string]any{"id": int64(1), "name": "first"}, mapping)
}

func Test_RowMapping_ShouldIgnoreKeysWithoutValues(t *testing.T) {
	// act
	mapping := asyncsql.RowMapping([]string{"id", "name"}, asyncsql.Row{int64(1)})

	// assert
	assert.Equal(t, map[string]any{"id": int64(1)}, mapping)
}
