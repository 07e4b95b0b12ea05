package controllers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/industrieschule/vertretungsplan/internal/config"
)

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="{{.Head.Charset}}">
<meta name="viewport" content="{{.Head.Viewport}}">
<title>{{.Title}}</title>
{{range .Stylesheets}}<link rel="stylesheet" href="{{.}}">
{{end}}<script>window.__PUBLIC_CONFIG__ = {{.Public}};</script>
</head>
<body>
<div id="__nuxt"></div>
</body>
</html>
`))

type shellData struct {
	Head        config.Head
	Title       string
	Stylesheets []string
	Public      map[string]string
}

// SiteController renders the HTML shell the front-end mounts into.
type SiteController struct {
	Site *config.SiteSource
	Log  *zap.Logger
}

// Shell renders the page with the current site configuration. The optional
// page query parameter is run through the title template.
func (sc *SiteController) Shell(c *gin.Context) {
	site := sc.Site.Current()
	data := shellData{
		Head:        site.App.Head,
		Title:       site.PageTitle(c.Query("page")),
		Stylesheets: site.Stylesheets(),
		Public:      site.Public(),
	}
	var buf bytes.Buffer
	if err := shellTemplate.Execute(&buf, data); err != nil {
		sc.Log.Error("render shell failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render page"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset="+site.App.Head.Charset, buf.Bytes())
}
