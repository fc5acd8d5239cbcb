// Package dbtest builds small OpenGenes stores for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// LifespanChangeColumns is the column layout of lifespan_change.
var LifespanChangeColumns = []string{
	"HGNC TEXT",
	"model_organism TEXT",
	"sex TEXT",
	"line TEXT",
	"effect_on_lifespan TEXT",
	"control_cohort_size REAL",
	"experiment_cohort_size REAL",
	"quantity_of_animals_in_cage_or_container REAL",
	"containment_t_celsius_from REAL",
	"containment_t_celsius_to REAL",
	"diet TEXT",
	"target_gene_expression_change REAL",
	"control_lifespan_min REAL",
	"control_lifespan_mean REAL",
	"control_lifespan_median REAL",
	"control_lifespan_max REAL",
	"experiment_lifespan_min REAL",
	"experiment_lifespan_mean REAL",
	"experiment_lifespan_median REAL",
	"experiment_lifespan_max REAL",
	"lifespan_time_unit TEXT",
	"lifespan_percent_change_min REAL",
	"lifespan_percent_change_mean REAL",
	"lifespan_percent_change_median REAL",
	"lifespan_percent_change_max REAL",
	"significance_min TEXT",
	"significance_mean TEXT",
	"significance_median TEXT",
	"significance_max TEXT",
	"intervention_deteriorates TEXT",
	"intervention_improves TEXT",
	"main_effect_on_lifespan TEXT",
	"intervention_way TEXT",
	"intervention_method TEXT",
	"genotype TEXT",
	"tissue TEXT",
	"tissue_specific_promoter TEXT",
	"induction_by_drug_withdrawal TEXT",
	"drug TEXT",
	"treatment_start REAL",
	"treatment_end REAL",
	"treatment_period TEXT",
	"treatment_start_stage_of_development TEXT",
	"treatment_end_stage_of_development TEXT",
	"doi TEXT",
	"pmid INTEGER",
	"comment TEXT",
}

var schema = []string{
	"CREATE TABLE lifespan_change (" + strings.Join(LifespanChangeColumns, ", ") + ")",
	"CREATE TABLE gene_criteria (HGNC TEXT NOT NULL, criteria TEXT)",
	`CREATE TABLE gene_hallmarks (HGNC TEXT NOT NULL, "hallmarks of aging" TEXT)`,
	`CREATE TABLE longevity_associations (
		HGNC TEXT,
		"polymorphism type" TEXT,
		"polymorphism id" TEXT,
		"nucleotide substitution" TEXT,
		"amino acid substitution" TEXT,
		"polymorphism - other" TEXT,
		ethnicity TEXT,
		"study type" TEXT,
		sex TEXT,
		doi TEXT,
		pmid INTEGER
	)`,
}

var data = []string{
	`INSERT INTO lifespan_change (HGNC, model_organism, sex, effect_on_lifespan, main_effect_on_lifespan, intervention_way, intervention_method, lifespan_percent_change_mean, pmid) VALUES
		('IGF1R', 'mouse', 'female', 'increases lifespan', 'loss of function', 'changes in genome level', 'gene knockout', 33.0, 12483226),
		('IGF1R', 'mouse', 'male', 'no change', 'loss of function', 'changes in genome level', 'gene knockout', 15.9, 12483226),
		('DAF2', 'roundworm Caenorhabditis elegans', 'hermaphrodites', 'increases lifespan', 'loss of function', 'interventions by selective drug/RNAi', 'RNA interferention', 100.0, 8247153),
		('SIRT6', 'mouse', 'male', 'increases lifespan', 'gain of function', 'changes in genome level', 'additional copies of a gene in the genome', 14.8, 22367546),
		('SIRT6', 'fly Drosophila melanogaster', 'all', 'increases lifespan', 'gain of function', 'changes in genome level', 'tissue-specific gene overexpression', 10.2, NULL),
		('TP53', 'mouse', 'all', 'decreases lifespan', 'gain of function', 'changes in genome level', 'gene modification', -20.5, 11780111),
		(NULL, 'yeasts', 'not specified', 'increases lifespan', 'loss of function', 'changes in genome level', 'gene knockout', NULL, NULL)`,
	`INSERT INTO gene_criteria (HGNC, criteria) VALUES
		('TP53', 'Age-related changes in gene expression, methylation or protein activity'),
		('TP53', 'Changes in gene activity reduce mammalian lifespan'),
		('IGF1R', 'Changes in gene activity extend mammalian lifespan'),
		('SIRT6', 'Changes in gene activity extend mammalian lifespan')`,
	`INSERT INTO gene_hallmarks (HGNC, "hallmarks of aging") VALUES
		('SIRT6', 'genomic instability'),
		('TP53', 'cellular senescence'),
		('IGF1R', 'deregulated nutrient sensing, mitochondrial dysfunction')`,
	`INSERT INTO longevity_associations (HGNC, "polymorphism type", "polymorphism id", "nucleotide substitution", ethnicity, "study type", sex, pmid) VALUES
		('IGF1R', 'SNP', 'rs2229765', 'G/A', 'Italian', 'candidate genes study', 'all', 15585554),
		('SIRT6', 'SNP', 'rs107251', 'C/T', 'Italian, Southern', 'candidate genes study', 'all', 22084023),
		('TP53', 'SNP', 'rs1042522', 'G/C', 'Danish', 'GWAS', 'female', 17442735)`,
}

// NewStore writes a store with the four OpenGenes tables and a few rows to a
// temporary directory and returns its path.
func NewStore(tb testing.TB) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "open_genes.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		tb.Fatalf("open fixture store: %v", err)
	}
	defer db.Close()

	for _, stmt := range append(append([]string{}, schema...), data...) {
		if _, err := db.Exec(stmt); err != nil {
			tb.Fatalf("build fixture store: %v\n%s", err, stmt)
		}
	}

	return path
}
