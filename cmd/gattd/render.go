package main

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/srg/gattd/internal/gatt"
	"github.com/srg/gattd/internal/peripheral"
)

var headerColor = color.New(color.FgCyan, color.Bold)

// attributeRow is one characteristic line of an attribute table.
type attributeRow struct {
	handle  string
	service string
	attr    gatt.Attribute
}

func bindingRows(table []peripheral.Binding) []attributeRow {
	rows := make([]attributeRow, 0, len(table))
	for _, b := range table {
		rows = append(rows, attributeRow{
			handle:  strconv.Itoa(int(b.Handle)),
			service: gatt.FormatUUID(b.Service),
			attr:    b.Attribute,
		})
	}
	return rows
}

func serviceRows(services []*gatt.Service) []attributeRow {
	var rows []attributeRow
	for _, svc := range services {
		for _, c := range svc.Characteristics() {
			rows = append(rows, attributeRow{service: gatt.FormatUUID(svc.UUID()), attr: c})
		}
	}
	return rows
}

// renderAttributes writes rows as an aligned table. The handle column is shown only when
// withHandles is set, i.e. after the services were bound.
func renderAttributes(w io.Writer, rows []attributeRow, withHandles bool) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if withHandles {
		fmt.Fprint(tw, "HANDLE\t")
	}
	fmt.Fprintln(tw, "SERVICE\tCHARACTERISTIC\tPROPERTIES\tPERMISSIONS\tVALUE")

	for _, r := range rows {
		if withHandles {
			fmt.Fprintf(tw, "%s\t", r.handle)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.service,
			gatt.FormatUUID(r.attr.UUID()),
			orDash(r.attr.Properties().String()),
			orDash(r.attr.Permissions().String()),
			formatValue(r.attr.Data()),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	header, body, _ := strings.Cut(buf.String(), "\n")
	if _, err := fmt.Fprintln(w, headerColor.Sprint(header)); err != nil {
		return err
	}
	_, err := io.WriteString(w, body)
	return err
}

func formatValue(data []byte) string {
	if len(data) == 0 {
		return "-"
	}
	return fmt.Sprintf("% x", data)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// renderDescriptors lists the descriptors of every row, decoding well-known types.
func renderDescriptors(w io.Writer, rows []attributeRow) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHARACTERISTIC\tDESCRIPTOR\tNAME\tVALUE")

	for _, r := range rows {
		for _, d := range r.attr.Descriptors() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				gatt.FormatUUID(r.attr.UUID()),
				gatt.FormatUUID(d.UUID),
				orDash(d.KnownName()),
				d.DescribeValue(),
			)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	header, body, _ := strings.Cut(buf.String(), "\n")
	if _, err := fmt.Fprintln(w, headerColor.Sprint(header)); err != nil {
		return err
	}
	_, err := io.WriteString(w, body)
	return err
}
