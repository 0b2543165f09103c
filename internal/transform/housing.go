package transform

import "github.com/dyluth/pricepipe/internal/dataset"

// HousingVariant is the house-price dataset.
const HousingVariant = "housing"

// HousingColumns is the house-price input schema.
var HousingColumns = []string{
	"price", "area", "bedrooms", "bathrooms", "stories",
	"mainroad", "guestroom", "basement", "hotwaterheating", "airconditioning",
	"parking", "prefarea", "furnishingstatus",
}

// housingRemaps lists each remapped column with its vocabulary, in column order.
var housingRemaps = []struct {
	column string
	remap  Remap
}{
	{"mainroad", yesNo},
	{"guestroom", yesNo},
	{"basement", yesNo},
	{"hotwaterheating", yesNo},
	{"airconditioning", yesNo},
	{"prefarea", yesNo},
	{"furnishingstatus", furnishing},
}

// Housing remaps the yes/no columns to 1/0 and the furnishing status to
// 2/1/0. Every other column is already numeric and passes through. Values
// outside a vocabulary pass through unchanged and are counted in the Report.
type Housing struct {
	opts Options
}

// NewHousing creates the house-price transformer.
func NewHousing(opts Options) *Housing {
	return &Housing{opts: opts}
}

func (h *Housing) Name() string { return HousingVariant }

func (h *Housing) Columns() []string { return HousingColumns }

func (h *Housing) Transform(t *dataset.Table) (*Report, error) {
	if err := t.Require(HousingColumns...); err != nil {
		return nil, err
	}

	report := newReport(HousingVariant, t.Len())

	for _, rc := range housingRemaps {
		values, err := t.Column(rc.column)
		if err != nil {
			return nil, err
		}

		for i, v := range values {
			result := rc.remap.Apply(v)
			if result.Outcome == Unmapped {
				if h.opts.StrictCategories {
					return nil, &UnmappedCategoryError{Column: rc.column, Row: i, Value: v.Text()}
				}
				report.recordUnmapped(rc.column, i, v.Text())
			}
			values[i] = result.Cell
		}

		if err := t.SetColumn(rc.column, values); err != nil {
			return nil, err
		}
	}

	return report, nil
}
