package types

// Column describes one dataset column
type Column struct {
	Name  string `yaml:"name"`
	Dtype string `yaml:"dtype"`
}

var (
	imageColumn    = Column{Name: "image", Dtype: "image"}
	filenameColumn = Column{Name: "filename", Dtype: "string"}
	projectColumn  = Column{Name: "project", Dtype: "string"}
	textColumn     = Column{Name: "text", Dtype: "string"}
)

var schemas = map[Mode][]Column{
	ModeRawXML: {
		imageColumn,
		{Name: "xml", Dtype: "string"},
		filenameColumn,
		projectColumn,
	},
	ModeText: {
		imageColumn,
		textColumn,
		filenameColumn,
		projectColumn,
	},
	ModeRegion: {
		imageColumn,
		textColumn,
		{Name: "region_type", Dtype: "string"},
		{Name: "region_id", Dtype: "string"},
		{Name: "reading_order", Dtype: "int32"},
		filenameColumn,
		projectColumn,
	},
	ModeLine: {
		imageColumn,
		textColumn,
		{Name: "line_id", Dtype: "string"},
		{Name: "line_reading_order", Dtype: "int32"},
		{Name: "region_id", Dtype: "string"},
		{Name: "region_reading_order", Dtype: "int32"},
		{Name: "region_type", Dtype: "string"},
		filenameColumn,
		projectColumn,
	},
	ModeWindow: {
		imageColumn,
		textColumn,
		{Name: "window_size", Dtype: "int32"},
		{Name: "window_index", Dtype: "int32"},
		{Name: "line_ids", Dtype: "list<string>"},
		{Name: "line_reading_orders", Dtype: "list<int32>"},
		{Name: "region_id", Dtype: "string"},
		{Name: "region_reading_order", Dtype: "int32"},
		{Name: "region_type", Dtype: "string"},
		filenameColumn,
		projectColumn,
	},
	ModePolygonRegion: {
		imageColumn,
		textColumn,
		{Name: "region_type", Dtype: "string"},
		{Name: "region_id", Dtype: "string"},
		{Name: "reading_order", Dtype: "int32"},
		filenameColumn,
		projectColumn,
		{Name: "coords", Dtype: "string"},
	},
	ModePolygonLine: {
		imageColumn,
		textColumn,
		{Name: "line_id", Dtype: "string"},
		{Name: "region_id", Dtype: "string"},
		{Name: "reading_order", Dtype: "int32"},
		filenameColumn,
		projectColumn,
		{Name: "coords", Dtype: "string"},
		{Name: "baseline", Dtype: "string"},
	},
}

// Schema returns the ordered columns of a mode, nil for an unknown mode
func Schema(m Mode) []Column {
	cols, ok := schemas[m]
	if !ok {
		return nil
	}
	return append([]Column(nil), cols...)
}
