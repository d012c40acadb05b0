package help

import "fmt"

type generator func(subject, element string) Response

var generators = map[string]generator{
	"page":    pageHelp,
	"form":    formHelp,
	"button":  buttonHelp,
	"feature": featureHelp,
}

func pageHelp(subject, element string) Response {
	return Response{
		Explanation: fmt.Sprintf("The %s page lists records and lets you open, filter and create them.", subject),
		Tips: []string{
			"Use the status filter to narrow the list.",
			"Click a row to see its details and history.",
		},
		RelatedFeatures: []string{"dashboard"},
	}
}

func formHelp(subject, element string) Response {
	explanation := fmt.Sprintf("Fill in the %s form and save.", subject)
	if element != GeneralElement {
		explanation = fmt.Sprintf("The %s field of the %s form.", humanize(element), subject)
	}
	return Response{
		Explanation: explanation,
		Tips: []string{
			"Required fields are marked with an asterisk.",
			"Nothing is saved until you press Save.",
		},
	}
}

func buttonHelp(subject, element string) Response {
	return Response{
		Explanation: fmt.Sprintf("The %s button performs that action on the current record.", subject),
		Tips: []string{
			"Actions that change status are recorded in the record's history.",
		},
	}
}

func featureHelp(subject, element string) Response {
	return Response{
		Explanation: fmt.Sprintf("%s is available from the main menu to users whose role allows it.", subject),
		Tips: []string{
			"Ask an administrator if the feature is missing from your menu.",
		},
		RelatedFeatures: []string{"users"},
	}
}
