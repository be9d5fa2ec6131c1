package sim

// The demonstration run: four granules where granule 1 reports a value 10%
// above its peers every round, followed by a two-way partition.
const (
	DemoGranules    = 4
	DemoRounds      = 50
	DemoReportEvery = 10
)

// DemoOpinions returns the per-round opinions of the demonstration run.
func DemoOpinions() []float64 {
	return []float64{70, 77, 70, 70}
}

// DemoPartition returns the subgroups resolved after the demonstration run.
func DemoPartition() [][]int {
	return [][]int{{0, 1}, {2, 3}}
}
