// Package xlsx reads tender datasets from Excel workbooks with excelize.
package xlsx
