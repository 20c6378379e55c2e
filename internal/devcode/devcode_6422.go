package devcode

func init() {
	register(&Profile{
		Devcode:        6422,
		Model:          "DessMonitor Data Collector (devcode 6422)",
		KnownInverters: []string{"Must PH19-6048 EXP"},
		TitleMappings: map[string]string{
			"work state":         "Operating mode",
			"Grid frequency":     "Grid Frequency",
			"Inverter frequency": "Output frequency",
			"Batt Current":       "Battery Current",
			"batt power":         "Battery Power",
		},
		OperatingModes: map[string]string{
			"Grid-Tie": "Grid Mode",
			"OffGrid":  "Off-Grid Mode",
		},
	})
}
