// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/pdiddy/plan-engine/pkg/types"
)

var planTemplate = template.Must(template.New("plan").Funcs(template.FuncMap{
	"kcal": func(m types.Macros) string { return fmt.Sprintf("%.0f", m.Kcal) },
	"gram": func(v float64) string { return fmt.Sprintf("%.0f g", v) },
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Weekly Meal Plan</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; color: #1f2933; margin: 40px; }
  h1 { color: #0b7261; border-bottom: 3px solid #0b7261; padding-bottom: 8px; }
  h2 { margin-top: 28px; }
  .training { color: #0b7261; font-size: 0.8em; font-weight: 600; }
  table { width: 100%; border-collapse: collapse; margin-top: 8px; }
  th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #e4e7eb; }
  th { background: #f5f7fa; }
  .confidence-verified { color: #0b7261; }
  .confidence-ai_estimated { color: #b44d12; }
  .totals { margin-top: 6px; font-size: 0.9em; color: #52606d; }
  footer { margin-top: 40px; font-size: 0.75em; color: #9aa5b1; }
</style>
</head>
<body>
<h1>Weekly Meal Plan</h1>
{{range .Days}}
<h2>Day {{.DayNumber}} &mdash; {{.DayName}}{{if .IsTrainingDay}} <span class="training">TRAINING DAY</span>{{end}}</h2>
<table>
<tr><th>Slot</th><th>Meal</th><th>Cuisine</th><th>Calories</th><th>Protein</th><th>Carbs</th><th>Fat</th><th>Confidence</th></tr>
{{range .Meals}}
<tr>
  <td>{{title (printf "%s" .Slot)}}</td>
  <td>{{.Name}}</td>
  <td>{{title .Cuisine}}</td>
  <td>{{kcal .Nutrition}}</td>
  <td>{{gram .Nutrition.ProteinG}}</td>
  <td>{{gram .Nutrition.CarbsG}}</td>
  <td>{{gram .Nutrition.FatG}}</td>
  <td class="confidence-{{.Confidence}}">{{.Confidence}}</td>
</tr>
{{end}}
</table>
<p class="totals">Day total: {{kcal .Nutrition}} kcal (target {{printf "%.0f" .TargetKcal}}) &middot;
protein {{gram .Nutrition.ProteinG}} &middot; carbs {{gram .Nutrition.CarbsG}} &middot;
fat {{gram .Nutrition.FatG}} &middot; fiber {{gram .Nutrition.FiberG}}</p>
{{end}}
<h2>Week Totals</h2>
<p class="totals">{{kcal .WeekTotals}} kcal &middot; protein {{gram .WeekTotals.ProteinG}} &middot;
carbs {{gram .WeekTotals.CarbsG}} &middot; fat {{gram .WeekTotals.FatG}} &middot;
fiber {{gram .WeekTotals.FiberG}}</p>
<footer>Generated by plan-engine. Nutrition values marked ai_estimated were not verified against a food database.</footer>
</body>
</html>
`))

// renderHTML renders the branded plan document.
func renderHTML(plan types.CompiledMealPlan) (string, error) {
	var sb strings.Builder
	if err := planTemplate.Execute(&sb, plan); err != nil {
		return "", fmt.Errorf("rendering plan template: %w", err)
	}
	return sb.String(), nil
}
