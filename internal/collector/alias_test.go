package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
)

type fakeContents struct {
	files map[string]string
	reads int
}

func (f *fakeContents) ReadFile(_ context.Context, path, _ string) (string, error) {
	f.reads++
	content, ok := f.files[path]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

func TestResolveAlias(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "single_quotes", content: "{{ config(alias='ord_fct') }}\nselect 1", want: "ord_fct"},
		{name: "double_quotes", content: `{{ config(alias="ord_fct") }}`, want: "ord_fct"},
		{name: "args_before_and_after", content: "{{ config(materialized='table', alias='ord_fct', schema='marts') }}", want: "ord_fct"},
		{name: "multiline_upper", content: "{{\n  CONFIG(\n    materialized = 'view',\n    ALIAS = 'ord_fct'\n  )\n}}", want: "ord_fct"},
		{name: "trimmed", content: "{{ config(alias=' ord_fct ') }}", want: "ord_fct"},
		{name: "no_alias", content: "{{ config(materialized='table') }}", want: "orders"},
		{name: "no_config", content: "select * from {{ ref('stg_orders') }}", want: "orders"},
		{name: "empty", content: "", want: "orders"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveAlias(tc.content, "orders"))
		})
	}
}

func TestAliasResolverUsesFileContents(t *testing.T) {
	contents := &fakeContents{files: map[string]string{
		"models/core/orders.sql": "{{ config(materialized='table', alias='ord_fct') }}\nselect 1",
	}}
	file := models.ChangedFile{FileName: "orders", FilePath: "models/core/orders.sql", Status: models.StatusModified}

	resolver := NewAliasResolver(contents, false, zap.NewNop())

	assert.Equal(t, "ord_fct", resolver.Resolve(context.Background(), file))
}

func TestAliasResolverFallsBackOnReadError(t *testing.T) {
	resolver := NewAliasResolver(&fakeContents{}, false, nil)
	file := models.ChangedFile{FileName: "orders", FilePath: "models/orders.sql"}

	assert.Equal(t, "orders", resolver.Resolve(context.Background(), file))
}

func TestAliasResolverIgnoreAliasSkipsRead(t *testing.T) {
	contents := &fakeContents{files: map[string]string{
		"models/orders.sql": "{{ config(alias='ord_fct') }}",
	}}
	resolver := NewAliasResolver(contents, true, nil)

	got := resolver.Resolve(context.Background(), models.ChangedFile{FileName: "orders", FilePath: "models/orders.sql"})

	assert.Equal(t, "orders", got)
	assert.Zero(t, contents.reads)
}
