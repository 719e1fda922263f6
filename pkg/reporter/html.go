package reporter

import (
	"fmt"
	"html/template"
	"io"
)

const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Subscriptions Utilized - {{.RangeStart}}</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #333;
            padding: 20px;
            line-height: 1.6;
        }
        .container {
            max-width: 960px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(135deg, #cc0000 0%, #820000 100%);
            color: white;
            padding: 40px;
        }
        .header h1 {
            font-size: 2.2em;
            margin-bottom: 10px;
        }
        .header .meta {
            opacity: 0.95;
        }
        .section {
            padding: 40px;
        }
        .indicator {
            margin-bottom: 30px;
        }
        .indicator h3 {
            display: flex;
            justify-content: space-between;
            margin-bottom: 8px;
        }
        .progress {
            background: #f0f0f0;
            border-radius: 4px;
            height: 12px;
            overflow: hidden;
        }
        .progress .bar {
            height: 100%;
            background: #2b9af3;
        }
        .label-danger {
            color: #c9190b;
        }
        .label-info {
            color: #2b9af3;
        }
        .unavailable {
            color: #6a6e73;
            font-style: italic;
        }
        .tooltip {
            color: #6a6e73;
            font-size: 0.9em;
            margin-top: 6px;
        }
        .footer {
            background: #151515;
            color: #d2d2d2;
            padding: 20px 40px;
            font-size: 0.9em;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Subscriptions Utilized</h1>
            <div class="meta">
                <p><strong>Range:</strong> {{.RangeStart}} to {{.RangeEnd}}</p>
                <p><strong>Source:</strong> {{.Source}} | <strong>Generated:</strong> {{.GeneratedAt.Format "January 2, 2006 15:04:05 MST"}}</p>
            </div>
        </div>

        <div class="section">
            {{range .Rows}}
            <div class="indicator">
                <h3>
                    <span>{{.Title}}</span>
                    {{if .Displayable}}<span class="label-{{.Variant}}">{{.Percentage}}</span>{{else}}<span class="unavailable">{{.Status}}</span>{{end}}
                </h3>
                <div class="progress"><div class="bar" style="width: {{percent .Progress}}"></div></div>
                <div class="tooltip">
                    {{.Title}} {{.Field}}: {{.Report}} | Subscription threshold: {{.Capacity}}{{if .DataFrom}} | Data from: {{.DataFrom}}{{end}}
                </div>
            </div>
            {{end}}
        </div>

        <div class="footer">
            {{if .OverUtilizedCount}}<p>{{.OverUtilizedCount}} product(s) over subscription threshold</p>{{end}}
            <p>Generated by <strong>subscriptions-utilized</strong></p>
        </div>
    </div>
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"percent": func(v float64) template.CSS {
		return template.CSS(fmt.Sprintf("%.0f%%", v))
	},
}).Parse(htmlTemplate))

// GenerateHTML creates an HTML report
func GenerateHTML(report *Report, writer io.Writer) error {
	if err := reportTemplate.Execute(writer, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}
