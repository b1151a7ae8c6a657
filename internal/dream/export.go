package dream

import (
	"bytes"
	"fmt"
	"html/template"

	"dreamshare/internal/models"
	"dreamshare/pkg/i18n"
)

const exportDateFormat = "02/01/2006"

var exportTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - {{.Date}}</title>
    <style>
        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            line-height: 1.6;
            max-width: 800px;
            margin: 0 auto;
            padding: 20px;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            min-height: 100vh;
        }
        .container {
            background: white;
            border-radius: 20px;
            padding: 40px;
            box-shadow: 0 20px 40px rgba(0,0,0,0.2);
        }
        h1 {
            color: #4a5568;
            text-align: center;
            margin-bottom: 10px;
        }
        .date {
            text-align: center;
            color: #718096;
            margin-bottom: 30px;
        }
        h2 {
            color: #667eea;
            border-bottom: 2px solid #e2e8f0;
            padding-bottom: 8px;
        }
        .section { margin-bottom: 30px; }
        .emotion {
            display: inline-block;
            padding: 6px 14px;
            border-radius: 20px;
            color: white;
            font-weight: bold;
            background: {{.EmotionColor}};
        }
        img {
            max-width: 100%;
            border-radius: 12px;
            display: block;
            margin: 0 auto;
        }
        .footer {
            text-align: center;
            color: #a0aec0;
            font-size: 0.9em;
            margin-top: 40px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>🌙 {{.Title}} 🌙</h1>
        <p class="date">{{.Date}}{{if .PrivacyLabel}} &middot; {{.PrivacyLabel}}{{end}}</p>
        {{if .Emotion}}
        <div class="section">
            <span class="emotion">{{.EmotionEmoji}} {{.Emotion}}</span>
        </div>
        {{end}}
        <div class="section">
            <h2>📖 {{.StoryLabel}}</h2>
            <p>{{.Transcription}}</p>
        </div>
        {{if .ImprovedPrompt}}
        <div class="section">
            <h2>🎨 {{.InterpretationLabel}}</h2>
            <p>{{.ImprovedPrompt}}</p>
        </div>
        {{end}}
        {{if .ImageTag}}
        <div class="section">
            <h2>✨ {{.VisualizationLabel}}</h2>
            {{.ImageTag}}
        </div>
        {{end}}
        <p class="footer">{{.Footer}}</p>
    </div>
</body>
</html>
`))

// Exporter renders a dream as a standalone HTML page with localized
// labels.
type Exporter struct {
	i18n *i18n.I18nSupport
}

func NewExporter(translator *i18n.I18nSupport) *Exporter {
	return &Exporter{i18n: translator}
}

type exportData struct {
	Lang                string
	Title               string
	Date                string
	PrivacyLabel        string
	Emotion             string
	EmotionEmoji        string
	EmotionColor        string
	StoryLabel          string
	InterpretationLabel string
	VisualizationLabel  string
	Transcription       string
	ImprovedPrompt      string
	ImageTag            template.HTML
	Footer              string
}

// Export produces the HTML document for one dream.
func (e *Exporter) Export(d *models.Dream, lang string) ([]byte, error) {
	date := e.i18n.T(lang, "export.unknown_date", nil)
	if !d.CreatedAt.IsZero() {
		date = d.CreatedAt.Format(exportDateFormat)
	}

	data := exportData{
		Lang:                lang,
		Title:               e.i18n.T(lang, "export.title", nil),
		Date:                date,
		PrivacyLabel:        e.i18n.T(lang, "privacy."+models.NormalizePrivacy(d.Privacy), nil),
		StoryLabel:          e.i18n.T(lang, "export.story", nil),
		InterpretationLabel: e.i18n.T(lang, "export.interpretation", nil),
		VisualizationLabel:  e.i18n.T(lang, "export.visualization", nil),
		Transcription:       d.Transcription,
		ImprovedPrompt:      d.ImprovedPrompt,
		Footer:              e.i18n.T(lang, "export.generated_by", map[string]interface{}{"Date": date}),
	}
	if info, ok := Emotions[d.Emotion]; ok {
		data.Emotion = d.Emotion
		data.EmotionEmoji = info.Emoji
		data.EmotionColor = info.Color
	}
	if d.GeneratedImage != "" {
		// The image is a data URI produced by this application. Building
		// the element here keeps the base64 payload out of the template's
		// attribute escaping, which would entity-encode its + characters.
		data.ImageTag = template.HTML(fmt.Sprintf(`<img src="%s" alt="%s">`,
			d.GeneratedImage, template.HTMLEscapeString(data.Title)))
	}

	var buf bytes.Buffer
	if err := exportTemplate.Execute(&buf, &data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
