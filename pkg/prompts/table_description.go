// Package prompts builds the text sent to the description model.
package prompts

import (
	"fmt"
	"strings"
)

// Supported prompt locales.
const (
	LocaleJapanese = "ja"
	LocaleEnglish  = "en"
)

// TableContext is what the model is told about the selected table.
type TableContext struct {
	FullName string // catalog.schema.table
	Comment  string
	RowCount *int64
	Columns  []ColumnContext
}

// ColumnContext provides one column's name, type and comment.
type ColumnContext struct {
	Name     string
	DataType string
	Comment  string
}

// NormalizeLocale maps a requested locale to a supported one, defaulting to Japanese.
func NormalizeLocale(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if strings.HasPrefix(l, LocaleEnglish) {
		return LocaleEnglish
	}
	return LocaleJapanese
}

// BuildTableDescriptionPrompt creates the single-shot analysis request for one table.
// The model is asked for an overview, notable correlations, usable metrics and
// three analysis examples with sample SQL.
func BuildTableDescriptionPrompt(locale string, table TableContext) string {
	if NormalizeLocale(locale) == LocaleEnglish {
		return buildEnglishPrompt(table)
	}
	return buildJapanesePrompt(table)
}

// BuildTableDescriptionSystemMessage returns the system message for the description model.
func BuildTableDescriptionSystemMessage(locale string) string {
	if NormalizeLocale(locale) == LocaleEnglish {
		return `You are a SQL expert helping analysts understand warehouse tables. Answer in English.`
	}
	return `あなたはSQLエキスパートとして、分析者がデータウェアハウスのテーブルを理解する手助けをします。回答は日本語でお願いします。`
}

func buildJapanesePrompt(table TableContext) string {
	var prompt strings.Builder

	prompt.WriteString("テーブルが与えられるので、テーブル名は <tableName> タグ内にあり、列は <columns> タグ内にあるので確認してください。\n\n")

	prompt.WriteString(fmt.Sprintf("テーブル名は<tableName>%s</tableName>です。\n", table.FullName))
	if table.Comment != "" {
		prompt.WriteString(fmt.Sprintf("テーブルの説明: %s\n", table.Comment))
	}
	if table.RowCount != nil {
		prompt.WriteString(fmt.Sprintf("レコード数: %d\n", *table.RowCount))
	}
	prompt.WriteString(fmt.Sprintf("SQLのサンプルクエリはこちらです。<サンプルクエリ> select * from %s </サンプルクエリ>\n\n", table.FullName))

	prompt.WriteString("対象のテーブルが持つ列情報は以下です。\n")
	writeColumns(&prompt, table.Columns, "説明なし")
	prompt.WriteString("\n")

	prompt.WriteString("このテーブルの概要を説明し、このテーブルの各行にあるデータにどのような相関や特徴があるかを説明してください。\n")
	prompt.WriteString("また列を確認し利用可能な指標を数行で共有し、箇条書きを使用して分析例を3つを必ず挙げてください。\n")
	prompt.WriteString("またなぜその分析例が効果的なのかも詳細に説明し、サンプルのSQLを生成してください。\n")

	return prompt.String()
}

func buildEnglishPrompt(table TableContext) string {
	var prompt strings.Builder

	prompt.WriteString("You are given a table. The table name is inside the <tableName> tag and its columns are inside the <columns> tag.\n\n")

	prompt.WriteString(fmt.Sprintf("The table name is <tableName>%s</tableName>.\n", table.FullName))
	if table.Comment != "" {
		prompt.WriteString(fmt.Sprintf("Table description: %s\n", table.Comment))
	}
	if table.RowCount != nil {
		prompt.WriteString(fmt.Sprintf("Row count: %d\n", *table.RowCount))
	}
	prompt.WriteString(fmt.Sprintf("A sample query: <sampleQuery> select * from %s </sampleQuery>\n\n", table.FullName))

	prompt.WriteString("The table has the following columns.\n")
	writeColumns(&prompt, table.Columns, "no description")
	prompt.WriteString("\n")

	prompt.WriteString("Give an overview of this table and describe the correlations and characteristics of the data in its rows.\n")
	prompt.WriteString("List the metrics the columns make available in a few lines, then give exactly three analysis examples as bullet points.\n")
	prompt.WriteString("For each example, explain in detail why it is effective and provide sample SQL.\n")

	return prompt.String()
}

func writeColumns(prompt *strings.Builder, columns []ColumnContext, noComment string) {
	prompt.WriteString("<columns>\n")
	for _, col := range columns {
		comment := col.Comment
		if comment == "" {
			comment = noComment
		}
		if col.DataType != "" {
			prompt.WriteString(fmt.Sprintf("- %s (%s): %s\n", col.Name, col.DataType, comment))
		} else {
			prompt.WriteString(fmt.Sprintf("- %s: %s\n", col.Name, comment))
		}
	}
	prompt.WriteString("</columns>\n")
}
