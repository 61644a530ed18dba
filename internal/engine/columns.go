package engine

// ColumnStore holds a dataset in Struct-of-Arrays format for columnar export
type ColumnStore struct {
	// Data Columns (Flat Arrays)
	Values []float64
	Years  []int64

	// Dictionary Encoded IDs (0..N)
	CountryIDs []int32
	CodeIDs    []int32

	// Dictionaries (ID -> String), in first-seen order
	CountryDict []string
	CodeDict    []string
}

// Columns flattens the observations into a ColumnStore. Row i of every column
// is Observations[i].
func (d *Dataset) Columns() *ColumnStore {
	n := len(d.Observations)
	cs := &ColumnStore{
		Values:     make([]float64, n),
		Years:      make([]int64, n),
		CountryIDs: make([]int32, n),
		CodeIDs:    make([]int32, n),
	}

	cMap := make(map[string]int32)
	kMap := make(map[string]int32)
	intern := func(m map[string]int32, dict *[]string, s string) int32 {
		if id, ok := m[s]; ok {
			return id
		}
		id := int32(len(*dict))
		*dict = append(*dict, s)
		m[s] = id
		return id
	}

	for i, o := range d.Observations {
		cs.Values[i] = o.Value
		cs.Years[i] = int64(o.Year)
		cs.CountryIDs[i] = intern(cMap, &cs.CountryDict, o.Country)
		cs.CodeIDs[i] = intern(kMap, &cs.CodeDict, o.CountryCode)
	}
	return cs
}

// Len is the number of rows.
func (cs *ColumnStore) Len() int { return len(cs.Values) }

// Country resolves the country name of row i.
func (cs *ColumnStore) Country(i int) string { return cs.CountryDict[cs.CountryIDs[i]] }

// Code resolves the country code of row i.
func (cs *ColumnStore) Code(i int) string { return cs.CodeDict[cs.CodeIDs[i]] }
