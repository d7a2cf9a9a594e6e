package exercise

// Info is the user-facing description of an exercise.
type Info struct {
	Type         Type     `json:"type"`
	Title        string   `json:"title"`
	Instructions string   `json:"instructions"`
	Tips         []string `json:"tips"`
	States       [2]State `json:"states"`
}

var catalog = map[Type]Info{
	HandsUp: {
		Type:         HandsUp,
		Title:        "Hands Up Exercise",
		Instructions: "Raise both hands above your head, then lower them slowly.",
		Tips: []string{
			"Try to raise your hands higher",
			"Keep your back straight",
			"Extend your arms fully",
		},
		States: [2]State{StateUp, StateDown},
	},
	HandsCurl: {
		Type:         HandsCurl,
		Title:        "Hands Curl Exercise",
		Instructions: "With your arms extended, slowly curl your hands towards your shoulders and back.",
		Tips: []string{
			"Curl your hands closer to your shoulders",
			"Keep your elbows steady",
			"Slow down the movement",
		},
		States: [2]State{StateCurled, StateExtended},
	},
	SitAndReach: {
		Type:         SitAndReach,
		Title:        "Sit and Reach Exercise",
		Instructions: "Sitting down, lean forward and try to reach your toes, then return to sitting position.",
		Tips: []string{
			"Bend from your hips, not just your back",
			"Reach further if you can",
			"Keep your legs straight",
		},
		States: [2]State{StateReaching, StateUpright},
	},
}

// Catalog returns every exercise description in display order.
func Catalog() []Info {
	out := make([]Info, 0, len(Types))
	for _, t := range Types {
		out = append(out, Describe(t))
	}
	return out
}

// Describe returns the description for t. Unknown types yield a zero Info.
func Describe(t Type) Info {
	info := catalog[t]
	info.Tips = append([]string(nil), info.Tips...)
	return info
}
