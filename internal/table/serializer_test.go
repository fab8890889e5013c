package table_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/domain"
	"docextract/internal/table"
)

func TestSerialize_TwoRowMatchTables(t *testing.T) {
	tables := []domain.Table{
		domain.NewRowMatchesTable([][3]string{{"A", "B", "C"}}),
		domain.NewRowMatchesTable([][3]string{{"1", "2", "3"}}),
	}

	out, err := table.Serialize(tables)

	require.NoError(t, err)
	assert.Equal(t, "A\tB\tC\n\n1\t2\t3\n\n", out)
}

func TestSerialize_StableAcrossCalls(t *testing.T) {
	tables := []domain.Table{
		domain.NewRowMatchesTable([][3]string{{"Item", "Qtd", "Valor"}, {"Caneta", "2", "3,50"}}),
		domain.NewStructuredTable([]string{"Nome", "CNPJ"}, [][]string{{"Acme", "00.000.000/0001-00"}}),
	}

	first, err := table.Serialize(tables)
	require.NoError(t, err)
	second, err := table.Serialize(tables)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSerialize_StructuredWithHeader(t *testing.T) {
	tables := []domain.Table{
		domain.NewStructuredTable(
			[]string{"Produto", "Preço"},
			[][]string{{"Café", "12,00"}, {"Açúcar", "5,40"}},
		),
	}

	out, err := table.Serialize(tables)

	require.NoError(t, err)
	assert.Equal(t, "Produto\tPreço\nCafé\t12,00\nAçúcar\t5,40\n\n", out)
}

func TestSerialize_StructuredRaggedRowsArePadded(t *testing.T) {
	tables := []domain.Table{
		domain.NewStructuredTable(nil, [][]string{{"a"}, {"b", "c", "d"}}),
	}

	out, err := table.Serialize(tables)

	require.NoError(t, err)
	assert.Equal(t, "a\t\t\nb\tc\td\n\n", out)
}

func TestSerialize_StructuredCellSeparatorsFlattened(t *testing.T) {
	tables := []domain.Table{
		domain.NewStructuredTable(nil, [][]string{{"linha 1\nlinha 2", "x\ty"}}),
	}

	out, err := table.Serialize(tables)

	require.NoError(t, err)
	assert.Equal(t, "linha 1 linha 2\tx y\n\n", out)
}

func TestSerialize_RowMatchCellSeparatorsFlattened(t *testing.T) {
	out, err := table.Serialize([]domain.Table{
		domain.NewRowMatchesTable([][3]string{{"Item\tA", "Qtd\r\n2", "Valor\n3,00"}}),
	})

	require.NoError(t, err)
	assert.Equal(t, "Item A\tQtd 2\tValor 3,00\n\n", out)
	assert.Equal(t, 2, strings.Count(out, "\t"))
}

func TestSerialize_EmptyInputs(t *testing.T) {
	out, err := table.Serialize(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = table.Serialize([]domain.Table{
		domain.NewRowMatchesTable(nil),
		domain.NewStructuredTable(nil, nil),
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSerialize_InvalidUTF8(t *testing.T) {
	tables := []domain.Table{
		domain.NewRowMatchesTable([][3]string{{"ok", "ok", "ok"}}),
		domain.NewStructuredTable(nil, [][]string{{"fine", "bad\xff"}}),
	}

	_, err := table.Serialize(tables)

	require.Error(t, err)
	var encErr *domain.EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, 1, encErr.Table)
	assert.Equal(t, 0, encErr.Row)
	assert.Equal(t, 1, encErr.Col)
}

func TestSerialize_UnknownKind(t *testing.T) {
	_, err := table.Serialize([]domain.Table{{Kind: "camelot"}})

	var encErr *domain.EncodingError
	assert.True(t, errors.As(err, &encErr))
}
