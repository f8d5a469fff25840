package profile

// SeriesSummary holds simple aggregates over a series for display.
type SeriesSummary struct {
	Count       int
	AvgCPU      float64
	PeakCPU     float64
	PeakMemory  uint64
	PeakLoad1   float64
	HasLoadAvgs bool
}

// Summarize computes display aggregates for the series.
func (s Series) Summarize() SeriesSummary {
	sum := SeriesSummary{Count: len(s.Samples)}
	if sum.Count == 0 {
		return sum
	}
	var total float64
	for _, smp := range s.Samples {
		total += smp.CPUUsage
		if smp.CPUUsage > sum.PeakCPU {
			sum.PeakCPU = smp.CPUUsage
		}
		if smp.MemoryUsed > sum.PeakMemory {
			sum.PeakMemory = smp.MemoryUsed
		}
		if smp.LoadAvg != nil {
			sum.HasLoadAvgs = true
			if smp.LoadAvg.Load1 > sum.PeakLoad1 {
				sum.PeakLoad1 = smp.LoadAvg.Load1
			}
		}
	}
	sum.AvgCPU = total / float64(sum.Count)
	return sum
}
