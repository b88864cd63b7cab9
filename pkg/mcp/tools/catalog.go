// Package tools provides the MCP tools that expose the data catalog.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/catalog"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// CatalogToolDeps contains dependencies for the catalog tools.
type CatalogToolDeps struct {
	Catalog      services.CatalogService
	Usage        services.UsageService
	Descriptions services.DescriptionService
	Marketplace  services.MarketplaceService // nil when matching is disabled
	Logger       *zap.Logger
}

// toolPayload is the JSON body of every successful tool result.
type toolPayload struct {
	Data     any      `json:"data"`
	Warnings []string `json:"warnings,omitempty"`
}

func jsonResult(data any, warnings []string) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(toolPayload{Data: data, Warnings: warnings})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// datasourceOption is the optional datasource argument shared by every tool.
func datasourceOption() mcp.ToolOption {
	return mcp.WithString(
		"datasource",
		mcp.Description("Optional - configured datasource name; defaults to the first one"),
	)
}

// RegisterCatalogTools registers the catalog MCP tools. The marketplace tool
// is only registered when deps.Marketplace is set.
func RegisterCatalogTools(s *server.MCPServer, deps *CatalogToolDeps) {
	registerListDatabasesTool(s, deps)
	registerListTablesTool(s, deps)
	registerSearchTablesTool(s, deps)
	registerGetTableTool(s, deps)
	registerUsageReportTool(s, deps)
	registerRecommendTablesTool(s, deps)
	registerDescribeTableTool(s, deps)
	if deps.Marketplace != nil {
		registerMarketplaceMatchesTool(s, deps)
	}
}

func registerListDatabasesTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := mcp.NewTool(
		"list_databases",
		mcp.WithDescription("List the databases of a datasource."),
		datasourceOption(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbs, err := deps.Catalog.ListDatabases(ctx, req.GetString("datasource", ""))
		if err != nil {
			return serviceErrorResult(err)
		}
		return jsonResult(dbs, nil)
	})
}

func registerListTablesTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := mcp.NewTool(
		"list_tables",
		mcp.WithDescription("List the tables of one database with their comments and owners."),
		mcp.WithString(
			"database",
			mcp.Required(),
			mcp.Description("Database (catalog) name"),
		),
		datasourceOption(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		database, err := req.RequireString("database")
		if err != nil {
			return nil, err
		}
		database = trimString(database)
		if database == "" {
			return NewErrorResult("invalid_parameters", "parameter 'database' cannot be empty"), nil
		}

		tables, err := deps.Catalog.ListTables(ctx, req.GetString("datasource", ""), database)
		if err != nil {
			return serviceErrorResult(err)
		}
		return jsonResult(tables, nil)
	})
}

func registerSearchTablesTool(s *server.MCPServer, deps *CatalogToolDeps) {
	categoryIDs := make([]string, 0)
	for _, c := range deps.Catalog.Categories() {
		categoryIDs = append(categoryIDs, c.ID)
	}

	tool := mcp.NewTool(
		"search_tables",
		mcp.WithDescription(
			"Search tables across every database by a term matched against table names and comments, "+
				"optionally narrowed to topical categories. Results carry their access count over the lookback window. "+
				"Example: search_tables(query='order', categories=['sales_finance'])",
		),
		mcp.WithString(
			"query",
			mcp.Description("Optional - case-insensitive term"),
		),
		mcp.WithArray(
			"categories",
			mcp.Description(fmt.Sprintf("Optional - category IDs, any of: %v", categoryIDs)),
			mcp.WithStringItems(),
		),
		datasourceOption(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := deps.Catalog.Search(ctx,
			req.GetString("datasource", ""),
			req.GetString("query", ""),
			req.GetStringSlice("categories", nil))
		if err != nil {
			return serviceErrorResult(err)
		}
		return jsonResult(result.Tables, result.Warnings)
	})
}

func registerGetTableTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := mcp.NewTool(
		"get_table",
		mcp.WithDescription("Get one table's columns, row count, statistics and access count."),
		mcp.WithString(
			"table",
			mcp.Required(),
			mcp.Description("Fully-qualified name: database.schema.table"),
		),
		datasourceOption(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("table")
		if err != nil {
			return nil, err
		}
		name, err := catalog.ParseQualifiedName(trimString(raw))
		if err != nil {
			return serviceErrorResult(err)
		}

		detail, err := deps.Catalog.GetTableDetail(ctx, req.GetString("datasource", ""), name)
		if err != nil {
			return serviceErrorResult(err)
		}
		return jsonResult(detail.TableDetail, detail.Warnings)
	})
}

func registerUsageReportTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := mcp.NewTool(
		"get_usage_report",
		mcp.WithDescription(
			"Usage analytics: daily and hourly access counts, peak hour, trend and popularity ranking. "+
				"Omit database to cover every database. Set table to narrow to one table (no ranking then).",
		),
		mcp.WithString(
			"database",
			mcp.Description("Optional - database name"),
		),
		mcp.WithString(
			"table",
			mcp.Description("Optional - database.schema.table"),
		),
		datasourceOption(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ds := req.GetString("datasource", "")
		database := trimString(req.GetString("database", ""))
		table := trimString(req.GetString("table", ""))

		if table != "" {
			name, err := catalog.ParseQualifiedName(table)
			if err != nil {
				return serviceErrorResult(err)
			}
			table = name.String()
		}

		var (
			report *models.UsageReport
			err    error
		)
		if database == "" {
			report, err = deps.Usage.AllDatabasesReport(ctx, ds, table)
		} else {
			report, err = deps.Usage.Report(ctx, ds, database, table)
		}
		if err != nil {
			return serviceErrorResult(err)
		}
		warnings := report.Warnings
		report.Warnings = nil
		return jsonResult(report, warnings)
	})
}

func registerRecommendTablesTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := mcp.NewTool(
		"recommend_tables",
		mcp.WithDescription("Recommend the most-used tables across every database."),
		mcp.WithNumber(
			"limit",
			mcp.Description("Optional - number of tables; defaults to the configured limit"),
		),
		datasourceOption(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 0)
		if limit < 0 {
			return NewErrorResult("invalid_parameters", "parameter 'limit' cannot be negative"), nil
		}
		result, err := deps.Catalog.Recommend(ctx, req.GetString("datasource", ""), limit)
		if err != nil {
			return serviceErrorResult(err)
		}
		return jsonResult(result.Tables, result.Warnings)
	})
}

func registerDescribeTableTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := mcp.NewTool(
		"describe_table",
		mcp.WithDescription(
			"Generate an explanation of a table: overview, correlations, available metrics "+
				"and three analysis examples with sample SQL.",
		),
		mcp.WithString(
			"table",
			mcp.Required(),
			mcp.Description("Fully-qualified name: database.schema.table"),
		),
		mcp.WithString(
			"locale",
			mcp.Description("Optional - ja or en"),
			mcp.Enum("ja", "en"),
		),
		datasourceOption(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("table")
		if err != nil {
			return nil, err
		}
		name, err := catalog.ParseQualifiedName(trimString(raw))
		if err != nil {
			return serviceErrorResult(err)
		}

		desc, err := deps.Descriptions.Describe(ctx, req.GetString("datasource", ""), name, req.GetString("locale", ""))
		if err != nil {
			deps.Logger.Debug("describe_table failed", zap.String("table", name.String()), zap.Error(err))
			return serviceErrorResult(err)
		}
		return jsonResult(desc, nil)
	})
}

func registerMarketplaceMatchesTool(s *server.MCPServer, deps *CatalogToolDeps) {
	tool := mcp.NewTool(
		"find_marketplace_matches",
		mcp.WithDescription(
			"Find marketplace datasets similar to catalog tables. With table set, ranks listings "+
				"against that table; otherwise returns the best table/listing pairs.",
		),
		mcp.WithString(
			"table",
			mcp.Description("Optional - database.schema.table"),
		),
		datasourceOption(),
		mcp.WithNumber(
			"limit",
			mcp.Description("Optional - number of matches"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 0)
		table := trimString(req.GetString("table", ""))
		if table == "" {
			matches, err := deps.Marketplace.TopMatches(ctx, limit)
			if err != nil {
				return serviceErrorResult(err)
			}
			return jsonResult(matches, nil)
		}

		name, err := catalog.ParseQualifiedName(table)
		if err != nil {
			return serviceErrorResult(err)
		}
		matches, err := deps.Marketplace.SimilarToTable(ctx, req.GetString("datasource", ""), name, limit)
		if err != nil {
			return serviceErrorResult(err)
		}
		return jsonResult(matches, nil)
	})
}
