package schema

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"longevitygenie/opengenes/internal/db"
	"longevitygenie/opengenes/internal/dbtest"
)

type staticDoc struct {
	text string
	err  error
}

func (d staticDoc) Text(context.Context) (string, error) {
	return d.text, d.err
}

func newTestCatalog(t *testing.T, usage UsageDocument) *Catalog {
	t.Helper()

	store, err := db.Open(context.Background(), dbtest.NewStore(t), db.StoreOptions{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewCatalog(store, usage)
}

func TestDescribeDocumentedTables(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t, nil)
	d, err := c.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	wantOrder := []string{"lifespan_change", "gene_criteria", "gene_hallmarks", "longevity_associations"}
	var gotOrder []string
	for _, tbl := range d.Tables {
		gotOrder = append(gotOrder, tbl.Name)
	}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Fatalf("tables = %v, want %v", gotOrder, wantOrder)
	}

	for _, doc := range Documented {
		tbl, ok := d.Table(doc.Name)
		if !ok {
			t.Fatalf("table %s missing", doc.Name)
		}
		if len(tbl.Columns) != doc.Columns {
			t.Errorf("%s has %d columns, want %d", doc.Name, len(tbl.Columns), doc.Columns)
		}
	}

	if m := d.Mismatches(); len(m) != 0 {
		t.Fatalf("unexpected mismatches: %v", m)
	}

	criteria, _ := d.Table("gene_criteria")
	if criteria.Columns[0].Name != "HGNC" || criteria.Columns[0].Nullable {
		t.Errorf("expected non-null HGNC first, got %+v", criteria.Columns[0])
	}
	if criteria.Columns[1].Type != "TEXT" || !criteria.Columns[1].Nullable {
		t.Errorf("unexpected criteria column %+v", criteria.Columns[1])
	}
}

func TestDescribeEnumerations(t *testing.T) {
	t.Parallel()

	d, err := newTestCatalog(t, nil).Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	lc, _ := d.Table("lifespan_change")
	wantOrganisms := []string{
		"fly Drosophila melanogaster",
		"mouse",
		"roundworm Caenorhabditis elegans",
		"yeasts",
	}
	if got := lc.Enumerations["model_organism"]; !reflect.DeepEqual(got, wantOrganisms) {
		t.Errorf("model_organism = %v, want %v", got, wantOrganisms)
	}
	if len(lc.Enumerations) != 6 {
		t.Errorf("expected 6 enumerated columns, got %d", len(lc.Enumerations))
	}

	la, _ := d.Table("longevity_associations")
	if got := la.Enumerations["study type"]; !reflect.DeepEqual(got, []string{"GWAS", "candidate genes study"}) {
		t.Errorf("study type = %v", got)
	}

	gh, _ := d.Table("gene_hallmarks")
	if gh.Enumerations != nil {
		t.Errorf("gene_hallmarks should have no enumerations, got %v", gh.Enumerations)
	}
}

func TestDescribeBuildsOnce(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t, nil)

	var wg sync.WaitGroup
	results := make([]*Descriptor, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := c.Describe(context.Background())
			if err != nil {
				t.Errorf("Describe failed: %v", err)
			}
			results[i] = d
		}()
	}
	wg.Wait()

	for _, d := range results[1:] {
		if d != results[0] {
			t.Fatal("concurrent callers observed different descriptors")
		}
	}
}

func TestDescribeFailureNotCached(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Describe(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	if _, err := c.Describe(context.Background()); err != nil {
		t.Fatalf("Describe after a failed build: %v", err)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	usage := staticDoc{text: "Query the OpenGenes database with SQLite SELECT statements.\nAlways add LIMIT.\n\nTables\n..."}
	c := newTestCatalog(t, usage)

	got, err := c.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	for _, want := range []string{
		"1. lifespan_change (47 columns)",
		"2. gene_criteria (2 columns)",
		"3. gene_hallmarks (2 columns)",
		"4. longevity_associations (11 columns)",
		"and 39 more",
		"model_organism (4 values)",
		"All tables are linked by HGNC",
		"Usage notes:\nQuery the OpenGenes database with SQLite SELECT statements.\nAlways add LIMIT.\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Tables\n...") {
		t.Error("summary should only carry the first usage paragraph")
	}

	again, _ := c.Summary(context.Background())
	if again != got {
		t.Fatal("summary is not deterministic")
	}
}

func TestSummaryWithoutUsageDocument(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t, staticDoc{err: errors.New("not downloaded")})

	got, err := c.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary should degrade, got %v", err)
	}
	if strings.Contains(got, "Usage notes") {
		t.Fatal("unexpected usage notes")
	}
	if !strings.Contains(got, "lifespan_change") {
		t.Fatal("summary lacks derived metadata")
	}
}

func TestOrderTables(t *testing.T) {
	t.Parallel()

	got := orderTables([]string{"zeta", "gene_hallmarks", "alpha", "lifespan_change"})
	want := []string{"lifespan_change", "gene_hallmarks", "alpha", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("orderTables = %v, want %v", got, want)
	}
}
