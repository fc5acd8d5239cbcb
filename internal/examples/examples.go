// Package examples holds the curated sample queries served to clients.
package examples

type Example struct {
	SQL         string `json:"sql"`
	Description string `json:"description"`
}

var catalog = []Example{
	{
		Description: "Get top 10 genes with most lifespan experiments",
		SQL:         "SELECT HGNC, COUNT(*) as experiment_count FROM lifespan_change WHERE HGNC IS NOT NULL GROUP BY HGNC ORDER BY experiment_count DESC LIMIT 10",
	},
	{
		Description: "Find genes that increase lifespan in mice",
		SQL:         "SELECT DISTINCT HGNC, effect_on_lifespan FROM lifespan_change WHERE model_organism = 'mouse' AND effect_on_lifespan = 'increases lifespan' AND HGNC IS NOT NULL",
	},
	{
		Description: "Get all criteria for a specific gene (e.g., TP53)",
		SQL:         "SELECT criteria FROM gene_criteria WHERE HGNC = 'TP53'",
	},
	{
		Description: "Find genes associated with specific hallmarks of aging",
		SQL:         `SELECT HGNC, "hallmarks of aging" FROM gene_hallmarks WHERE "hallmarks of aging" LIKE '%mitochondrial%'`,
	},
	{
		Description: "Get longevity associations for specific ethnicity",
		SQL:         `SELECT HGNC, "polymorphism type", "nucleotide substitution", ethnicity FROM longevity_associations WHERE ethnicity LIKE '%Italian%'`,
	},
	{
		Description: "Count experiments by model organism",
		SQL:         "SELECT model_organism, COUNT(*) as count FROM lifespan_change GROUP BY model_organism ORDER BY count DESC",
	},
	{
		Description: "Find genes with both lifespan effects and longevity associations",
		SQL:         "SELECT DISTINCT lc.HGNC FROM lifespan_change lc INNER JOIN longevity_associations la ON lc.HGNC = la.HGNC WHERE lc.HGNC IS NOT NULL",
	},
	{
		Description: "Get genes with specific intervention methods",
		SQL:         "SELECT DISTINCT HGNC, intervention_method FROM lifespan_change WHERE intervention_method = 'gene knockout' AND HGNC IS NOT NULL",
	},
	{
		Description: "Find genes that affect both mammals and non-mammals",
		SQL: `SELECT DISTINCT HGNC
FROM lifespan_change
WHERE HGNC IN (
    SELECT HGNC FROM lifespan_change WHERE model_organism IN ('mouse', 'rat', 'rabbit', 'hamster')
) AND HGNC IN (
    SELECT HGNC FROM lifespan_change WHERE model_organism IN ('roundworm Caenorhabditis elegans', 'fly Drosophila melanogaster', 'yeasts')
)`,
	},
	{
		Description: "Get summary statistics for lifespan changes",
		SQL:         "SELECT effect_on_lifespan, COUNT(*) as count, AVG(lifespan_percent_change_mean) as avg_change FROM lifespan_change WHERE lifespan_percent_change_mean IS NOT NULL GROUP BY effect_on_lifespan",
	},
}

// List returns the examples in their fixed order. The slice is a copy.
func List() []Example {
	return append([]Example(nil), catalog...)
}
