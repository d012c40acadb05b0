package help

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeBaseLoads(t *testing.T) {
	kb, err := load(knowledgeYAML)
	require.NoError(t, err)
	for context, elems := range kb {
		e, ok := elems[GeneralElement]
		assert.True(t, ok, "%s has no general entry", context)
		assert.NotEmpty(t, e.Explanation, context)
	}
	assert.Contains(t, Contexts(), "pricing")
}

func TestGetHelp_ExactMatch(t *testing.T) {
	r := GetHelp("pricing", "exchange-rate")
	assert.Equal(t, "exact", r.Source)
	assert.Contains(t, r.Explanation, "greater than zero")
	assert.Equal(t, []string{"distributor-invoices"}, r.RelatedFeatures)
}

func TestGetHelp_ContextGeneral(t *testing.T) {
	r := GetHelp("work-orders", "no-such-field")
	assert.Equal(t, "general", r.Source)
	assert.Contains(t, r.Explanation, "Work orders")
	assert.Equal(t, "no-such-field", r.Element)

	r = GetHelp("Tickets", "")
	assert.Equal(t, "exact", r.Source)
	assert.Equal(t, GeneralElement, r.Element)
}

func TestGetHelp_Generated(t *testing.T) {
	tests := []struct {
		context string
		element string
		want    string
	}{
		{"page-supplier_list", "", "supplier list page"},
		{"form.new-customer", "trn", "trn field of the new customer form"},
		{"button/mark-paid", "", "mark paid button"},
		{"feature:stock-count", "", "stock count is available"},
	}
	for _, tt := range tests {
		t.Run(tt.context, func(t *testing.T) {
			r := GetHelp(tt.context, tt.element)
			assert.Equal(t, "generated", r.Source)
			assert.Contains(t, r.Explanation, tt.want)
			assert.NotEmpty(t, r.Tips)
			assert.Equal(t, tt.context, r.Context)
		})
	}
}

func TestGetHelp_UnknownContextNeverFails(t *testing.T) {
	for _, context := range []string{"totally-unknown-context-xyz", "widget", "", "-", "page-"} {
		r := GetHelp(context, "")
		assert.Equal(t, "fallback", r.Source, context)
		assert.NotEmpty(t, r.Explanation)
		assert.Contains(t, r.Explanation, context)
	}

	r := GetHelp("mystery", "blue-button")
	assert.Contains(t, r.Explanation, "blue-button")
	assert.Contains(t, r.Explanation, "mystery")
}

func TestGetHelp_ReturnsCopies(t *testing.T) {
	r := GetHelp("pricing", "")
	require.NotEmpty(t, r.Tips)
	r.Tips[0] = "changed"

	again := GetHelp("pricing", "")
	assert.NotEqual(t, "changed", again.Tips[0])
}
