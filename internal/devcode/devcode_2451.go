package devcode

func init() {
	register(&Profile{
		Devcode:        2451,
		Model:          "DessMonitor Data Collector (devcode 2451)",
		KnownInverters: []string{"Axpert MKS IV 5600VA"},
		TitleMappings: map[string]string{
			"AC Output Active Power":    "Output Active Power",
			"AC1 Output Apparent Power": "Output Apparent Power",
			"AC1 Output Frequency":      "Output frequency",
			"AC1 Output Voltage":        "Output Voltage",
			"Battery Capacity":          "State of Charge",
			"Output Load Percent":       "Load Percent",
			"Output Source Priority":    "Output priority",
			"PV1 Charging Power":        "PV1 Charger Power",
			"PV1 Input Current":         "PV1 Charger Current",
			"PV1 Input Voltage":         "PV1 Voltage",
			"PV2 Charging power":        "PV2 Charger Power",
			"PV2 Input current":         "PV2 Charger Current",
			"PV2 Input voltage":         "PV2 Voltage",
			"Solar Feed To Grid Power":  "Grid Power",
			"Today generation":          "Energy Today",
			"Total generation":          "Energy Total",
		},
		OutputPriorities: map[string]string{
			"Utility Solar Bat": "Utility → Solar → Battery",
			"Solar Utility Bat": "Solar → Utility → Battery",
			"Solar Bat Utility": "Solar → Battery → Utility",
		},
		ChargerPriorities: map[string]string{
			"Utility First":                 "Utility First",
			"Solar First":                   "PV First",
			"Solar + Utility":               "PV Is At The Same Level As Utility",
			"Only Solar Charging Permitted": "Only PV",
		},
	})
}
