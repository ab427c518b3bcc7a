// Package ui holds the dashboard page. The page is a plain templ
// component: all data arrives over the datastar SSE endpoints after
// load, so the markup itself is static.
package ui

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Price Analytics Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; background: #f7f7f9; }
h1 { margin-bottom: 0.25rem; }
.subtitle { color: #666; margin-bottom: 2rem; }
section { background: #fff; border-radius: 8px; padding: 1.5rem; margin-bottom: 1.5rem; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
.modern-table { width: 100%; border-collapse: collapse; }
.modern-table th, .modern-table td { text-align: left; padding: 0.5rem 0.75rem; border-bottom: 1px solid #eee; }
.category-badge { background: #eef2ff; border-radius: 4px; padding: 0.1rem 0.4rem; font-size: 0.85em; }
</style>
</head>
<body data-on-load="@get('/sse/refresh-all')">
<h1>Price Analytics Dashboard</h1>
<p class="subtitle">Period price changes, subcategory totals and what-if revenue projections</p>

<section>
<h2>Price Changes by Product</h2>
<div id="products-content">Loading…</div>
</section>

<section>
<h2>Price Trends by Subcategory</h2>
<div id="subcategory-trends-content" data-signals="{subcategoryTrends: {}}">Loading…</div>
</section>

<section>
<h2>Price Trends by Supplier</h2>
<div id="supplier-trends-content" data-signals="{supplierTrends: {}}">Loading…</div>
</section>

<section>
<h2>Price Increase Candidates</h2>
<div id="candidates-content" data-signals="{candidates: {}}">Loading…</div>
</section>
</body>
</html>`

func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, dashboardHTML)
		return err
	})
}
