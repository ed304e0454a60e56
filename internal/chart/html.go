// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

package chart

import (
	"bytes"
	"html/template"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/browser"
)

func init() {
	// ブラウザの出力でコマンドの表示を乱さない
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// ホイールで拡大縮小、ドラッグで移動、ダブルクリックで元に戻す
var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { margin: 0; background: #fff; font-family: sans-serif; }
h1 { font-size: 16px; font-weight: normal; margin: 8px 12px; }
#chart { width: 100vw; height: calc(100vh - 40px); overflow: hidden; cursor: grab; }
#chart svg { width: 100%; height: 100%; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="chart">{{.SVG}}</div>
<script>
(function () {
  var svg = document.querySelector("#chart svg");
  if (!svg) { return; }
  var vb = svg.getAttribute("viewBox").split(/[\s,]+/).map(Number);
  var home = vb.slice();
  var drag = null;
  function apply() { svg.setAttribute("viewBox", vb.join(" ")); }
  function toUser(ev) {
    var r = svg.getBoundingClientRect();
    return [vb[0] + (ev.clientX - r.left) / r.width * vb[2],
            vb[1] + (ev.clientY - r.top) / r.height * vb[3]];
  }
  svg.addEventListener("wheel", function (ev) {
    ev.preventDefault();
    var p = toUser(ev);
    var k = ev.deltaY < 0 ? 0.8 : 1.25;
    vb[0] = p[0] - (p[0] - vb[0]) * k;
    vb[1] = p[1] - (p[1] - vb[1]) * k;
    vb[2] *= k;
    vb[3] *= k;
    apply();
  }, { passive: false });
  svg.addEventListener("mousedown", function (ev) { drag = toUser(ev); });
  window.addEventListener("mouseup", function () { drag = null; });
  svg.addEventListener("mousemove", function (ev) {
    if (!drag) { return; }
    var p = toUser(ev);
    vb[0] -= p[0] - drag[0];
    vb[1] -= p[1] - drag[1];
    apply();
  });
  svg.addEventListener("dblclick", function () { vb = home.slice(); apply(); });
})();
</script>
</body>
</html>
`))

// HTML は描いたグラフを埋め込んだ単独のHTML文書を返す
func HTML(f *Figure) ([]byte, error) {
	svg, err := f.SVG()
	if err != nil {
		return nil, err
	}
	// XML宣言はHTMLの中では不要
	if i := bytes.Index(svg, []byte("<svg")); i > 0 {
		svg = svg[i:]
	}

	var buf bytes.Buffer
	err = page.Execute(&buf, struct {
		Title string
		SVG   template.HTML
	}{
		Title: f.Title,
		SVG:   template.HTML(svg),
	})
	if err != nil {
		slog.Error("Execute", "err", err)
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteHTML は f を描いて path に書く。既存のファイルは上書きする
func WriteHTML(path string, f *Figure) error {
	doc, err := HTML(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		slog.Error("WriteFile", "err", err)
		return err
	}
	return nil
}

// Show は既定のブラウザで path を開く。開けなくても警告だけ
func Show(path string) error {
	if err := browser.OpenFile(path); err != nil {
		slog.Warn("OpenFile", "path", path, "err", err)
		return err
	}
	return nil
}
