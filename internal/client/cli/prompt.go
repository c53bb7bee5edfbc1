package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Quaternijkon/betterfly/internal/client/tracker"
)

// PromptStopDetails asks for the note, the incomplete flag and a rating.
// Empty answers keep the zero value; an unparsable rating is asked again.
func PromptStopDetails(in io.Reader, out io.Writer) tracker.StopDetails {
	scanner := bufio.NewScanner(in)
	var d tracker.StopDetails

	fmt.Fprint(out, "Note (optional): ")
	if scanner.Scan() {
		d.Note = strings.TrimSpace(scanner.Text())
	}

	fmt.Fprint(out, "Incomplete? [y/N]: ")
	if scanner.Scan() {
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		d.Incomplete = answer == "y" || answer == "yes"
	}

	for {
		fmt.Fprint(out, "Rating 1-5 (empty to skip): ")
		if !scanner.Scan() {
			return d
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			return d
		}
		r, err := strconv.Atoi(text)
		if err == nil && r >= 1 && r <= 5 {
			d.Rating = r
			return d
		}
		fmt.Fprintf(out, "Invalid rating %q\n", text)
	}
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
