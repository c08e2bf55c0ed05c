package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmassist-medsafety/internal/domain"
)

func TestDefault(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, table.Version)
	assert.Equal(t, domain.KnownConditionTags, table.Order())

	for _, tag := range table.Order() {
		c, ok := table.Condition(tag)
		require.True(t, ok, tag)
		assert.NotEmpty(t, c.Rationale, tag)
		assert.Contains(t, c.Phrases(), tag.Phrase(), "tag phrase is an implicit synonym")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"High Blood-Pressure!!", "high blood pressure"},
		{"  type 2   diabetes\n", "type 2 diabetes"},
		{"G6PD/favism", "g6pd favism"},
		{"", ""},
		{"***", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestContainsPhrase(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phrase string
		want   bool
	}{
		{"exact word", "i have asthma", "asthma", true},
		{"multi word", "history of high blood pressure since 2010", "high blood pressure", true},
		{"prefix is not a match", "gouty", "gout", false},
		{"suffix is not a match", "nongout", "gout", false},
		{"empty phrase", "gout", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsPhrase(tt.text, tt.phrase))
		})
	}
}

func TestClassesFor(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	classes := table.ClassesFor(Normalize("Ibuprofen 200mg + Pseudoephedrine"))
	require.Len(t, classes, 2)
	assert.Equal(t, "nsaid", classes[0].Class)
	assert.Equal(t, "decongestant", classes[1].Class)

	classes = table.ClassesFor(Normalize("Paracetamol"))
	require.Len(t, classes, 1)
	assert.Equal(t, "acetaminophen", classes[0].Class)
	assert.Equal(t, []domain.ConditionTag{domain.LiverDisease}, classes[0].Conditions)

	assert.Empty(t, table.ClassesFor(Normalize("Loratadine")))
	assert.Empty(t, table.ClassesFor(""))
}

func TestStopwordsAndRelatedTerms(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	assert.True(t, table.IsStopword("have"))
	assert.False(t, table.IsStopword("headache"))
	assert.Contains(t, table.RelatedTerms("headache"), "analgesic")
	assert.Empty(t, table.RelatedTerms("unlisted"))
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing version",
			yaml:    "conditions:\n  - tag: gout\n    rationale: x\n",
			wantErr: "version is required",
		},
		{
			name:    "no conditions",
			yaml:    "version: \"1\"\n",
			wantErr: "at least one condition",
		},
		{
			name:    "unknown tag",
			yaml:    "version: \"1\"\nconditions:\n  - tag: dragon_pox\n    rationale: x\n",
			wantErr: "unknown condition tag",
		},
		{
			name:    "duplicate tag",
			yaml:    "version: \"1\"\nconditions:\n  - tag: gout\n    synonyms: [gout]\n    rationale: x\n  - tag: gout\n    synonyms: [gout]\n    rationale: y\n",
			wantErr: "duplicate condition tag",
		},
		{
			name:    "missing rationale",
			yaml:    "version: \"1\"\nconditions:\n  - tag: gout\n",
			wantErr: "has no rationale",
		},
		{
			name:    "missing synonyms",
			yaml:    "version: \"1\"\nconditions:\n  - tag: gout\n    rationale: x\n",
			wantErr: "has no synonyms",
		},
		{
			name: "class references undefined condition",
			yaml: "version: \"1\"\nconditions:\n  - tag: gout\n    synonyms: [gout]\n    rationale: x\n" +
				"ingredient_classes:\n  - class: nsaid\n    members: [ibuprofen]\n    conditions: [asthma]\n",
			wantErr: "undefined condition",
		},
		{
			name:    "malformed yaml",
			yaml:    "version: [",
			wantErr: "failed to parse vocabulary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MinimalTable(t *testing.T) {
	table, err := Load([]byte("version: \"test\"\nconditions:\n  - tag: gout\n    synonyms: [Hyperuricemia]\n    rationale: Raises uric acid.\n"))
	require.NoError(t, err)

	c, ok := table.Condition(domain.Gout)
	require.True(t, ok)
	assert.Equal(t, "gout", c.Display, "display defaults to the tag phrase")
	assert.Equal(t, []string{"gout", "hyperuricemia"}, c.Phrases())
	assert.Equal(t, "asthma", table.Display(domain.Asthma), "undefined tags fall back to the phrase")
}
