package schema

// TableDoc is what is documented about one OpenGenes table.
type TableDoc struct {
	Name    string
	Purpose string
	// Columns is the documented column count.
	Columns int
	// Enumerated lists the categorical columns whose distinct values are
	// published as enumerations.
	Enumerated []string
}

// Documented is the OpenGenes schema in presentation order.
var Documented = []TableDoc{
	{
		Name:    "lifespan_change",
		Purpose: "Experimental data about genetic interventions and their effects on lifespan in model organisms",
		Columns: 47,
		Enumerated: []string{
			"model_organism",
			"sex",
			"effect_on_lifespan",
			"main_effect_on_lifespan",
			"intervention_way",
			"intervention_method",
		},
	},
	{
		Name:       "gene_criteria",
		Purpose:    "Criteria classifications linking aging-related genes to 12 research criteria",
		Columns:    2,
		Enumerated: []string{"criteria"},
	},
	{
		Name:    "gene_hallmarks",
		Purpose: "Hallmarks of aging associated with specific genes",
		Columns: 2,
	},
	{
		Name:    "longevity_associations",
		Purpose: "Genetic variants associated with longevity in human population studies",
		Columns: 11,
		Enumerated: []string{
			"polymorphism type",
			"ethnicity",
			"study type",
			"sex",
		},
	},
}

func documented(name string) (TableDoc, bool) {
	for _, d := range Documented {
		if d.Name == name {
			return d, true
		}
	}
	return TableDoc{}, false
}
