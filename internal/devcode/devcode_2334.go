package devcode

func init() {
	register(&Profile{
		Devcode:        2334,
		Model:          "DessMonitor Data Collector (devcode 2334)",
		KnownInverters: []string{"EASUN 6.2KW Hybrid Solar Inverter"},
		TitleMappings: map[string]string{
			"AC output active power":       "Output Active Power",
			"AC output frequency":          "Output Frequency",
			"AC output voltage":            "Output Voltage",
			"Battery capacity":             "State of Charge",
			"Battery charging current":     "Battery Charging Current",
			"Battery discharge current":    "Battery Discharge Current",
			"Battery voltage":              "Battery Voltage",
			"Grid frequency":               "Grid Frequency",
			"Grid voltage":                 "Grid Voltage",
			"Output load percent":          "Load Percent",
			"PV Charging power":            "PV1 Charger Power",
			"PV Input current for battery": "PV1 Charger Current",
			"PV Input voltage":             "PV1 Voltage",
			"PV2 Charging power":           "PV2 Charger Power",
			"PV2 Input current":            "PV2 Charger Current",
			"PV2 Input voltage":            "PV2 Voltage",
		},
		OperatingModes: map[string]string{
			"Line Mode":    "Grid Mode",
			"Mains Mode":   "Grid Mode",
			"Battery Mode": "Battery Mode",
			"Standby":      "Standby",
			"Fault":        "Fault",
		},
		OutputPriorities: map[string]string{
			"Utility first": "Utility First",
			"Solar first":   "Solar First",
			"SBU first":     "Solar → Battery → Utility",
		},
	})
}
