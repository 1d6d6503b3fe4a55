package models

// TabularDataset pairs each feature row with the same row's close.
type TabularDataset struct {
	Columns []string
	X       [][]float64
	Y       []float64
	Dates   []string
}

func (d *TabularDataset) Len() int { return len(d.Y) }

// WindowedDataset holds fixed-length look-back windows. Window i spans rows
// [i, i+Length) and its target is the close of row i+Length.
type WindowedDataset struct {
	Length  int
	Columns []string
	X       [][][]float64
	Y       []float64
	// TargetDates[i] is the date of the row whose close is Y[i].
	TargetDates []string
}

func (d *WindowedDataset) Len() int { return len(d.Y) }

// Insufficient reports whether the table was too short to form any window.
func (d *WindowedDataset) Insufficient() bool { return len(d.Y) == 0 }
