package notion

import "time"

// Property type tags as reported by the Notion API.
const (
	TypeTitle          = "title"
	TypeRichText       = "rich_text"
	TypeSelect         = "select"
	TypeMultiSelect    = "multi_select"
	TypeStatus         = "status"
	TypeDate           = "date"
	TypeCheckbox       = "checkbox"
	TypeNumber         = "number"
	TypeURL            = "url"
	TypeEmail          = "email"
	TypePhoneNumber    = "phone_number"
	TypeFiles          = "files"
	TypePeople         = "people"
	TypeRelation       = "relation"
	TypeFormula        = "formula"
	TypeRollup         = "rollup"
	TypeCreatedTime    = "created_time"
	TypeCreatedBy      = "created_by"
	TypeLastEditedTime = "last_edited_time"
	TypeLastEditedBy   = "last_edited_by"
)

// Database describes a Notion database: its identifier and the property
// definitions that drive destination schema reconciliation.
type Database struct {
	Object         string                        `json:"object"`
	ID             string                        `json:"id"`
	Title          []RichText                    `json:"title"`
	Properties     map[string]PropertyDefinition `json:"properties"`
	LastEditedTime string                        `json:"last_edited_time"`
}

// PropertyDefinition is one schema entry of a database.
type PropertyDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Page is one database record. Immutable once fetched within a run.
type Page struct {
	Object         string                   `json:"object"`
	ID             string                   `json:"id"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Archived       bool                     `json:"archived"`
	Properties     map[string]PropertyValue `json:"properties"`
	URL            string                   `json:"url"`
}

// PropertyValue is the tagged variant holding one typed property value.
// Exactly one of the typed sub-fields is populated, selected by Type.
// Unknown tags leave all sub-fields empty; the transformer treats them
// as an explicit unknown arm.
type PropertyValue struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`

	Title          []RichText     `json:"title,omitempty"`
	RichText       []RichText     `json:"rich_text,omitempty"`
	Select         *SelectOption  `json:"select,omitempty"`
	Status         *SelectOption  `json:"status,omitempty"`
	MultiSelect    []SelectOption `json:"multi_select,omitempty"`
	Date           *DateValue     `json:"date,omitempty"`
	Checkbox       bool           `json:"checkbox,omitempty"`
	Number         *float64       `json:"number,omitempty"`
	URL            *string        `json:"url,omitempty"`
	Email          *string        `json:"email,omitempty"`
	PhoneNumber    *string        `json:"phone_number,omitempty"`
	Files          []File         `json:"files,omitempty"`
	People         []User         `json:"people,omitempty"`
	Relation       []Relation     `json:"relation,omitempty"`
	Formula        *Formula       `json:"formula,omitempty"`
	Rollup         *Rollup        `json:"rollup,omitempty"`
	CreatedTime    string         `json:"created_time,omitempty"`
	LastEditedTime string         `json:"last_edited_time,omitempty"`
	CreatedBy      *User          `json:"created_by,omitempty"`
	LastEditedBy   *User          `json:"last_edited_by,omitempty"`
}

// RichText is one text run of a title or rich_text value.
type RichText struct {
	Type      string `json:"type,omitempty"`
	PlainText string `json:"plain_text"`
}

// SelectOption is a select, multi_select, or status option.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateValue is a date property value; Start is an ISO 8601 string.
type DateValue struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// File is one entry of a files property, either externally linked or
// hosted by Notion.
type File struct {
	Name     string        `json:"name,omitempty"`
	Type     string        `json:"type,omitempty"`
	External *ExternalFile `json:"external,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
}

// ExternalFile is an externally linked file.
type ExternalFile struct {
	URL string `json:"url"`
}

// HostedFile is a Notion-hosted file with an expiring URL.
type HostedFile struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// User identifies a workspace member or bot.
type User struct {
	Object string `json:"object,omitempty"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
}

// Relation references a related page.
type Relation struct {
	ID string `json:"id"`
}

// Formula carries a formula result, tagged by its own result type.
type Formula struct {
	Type    string     `json:"type"`
	String  *string    `json:"string,omitempty"`
	Number  *float64   `json:"number,omitempty"`
	Boolean *bool      `json:"boolean,omitempty"`
	Date    *DateValue `json:"date,omitempty"`
}

// Rollup carries a rollup result, tagged by its own result type. Array
// results nest further property values typed per element.
type Rollup struct {
	Type   string          `json:"type"`
	Number *float64        `json:"number,omitempty"`
	Date   *DateValue      `json:"date,omitempty"`
	Array  []PropertyValue `json:"array,omitempty"`
}

// queryRequest is the database query request body.
type queryRequest struct {
	PageSize    int              `json:"page_size,omitempty"`
	StartCursor string           `json:"start_cursor,omitempty"`
	Filter      *timestampFilter `json:"filter,omitempty"`
}

// timestampFilter constrains results server-side by last-edited time.
type timestampFilter struct {
	Timestamp      string          `json:"timestamp"`
	LastEditedTime onOrAfterFilter `json:"last_edited_time"`
}

type onOrAfterFilter struct {
	OnOrAfter string `json:"on_or_after"`
}

// queryResponse is one page of database query results.
type queryResponse struct {
	Object     string  `json:"object"`
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// apiError is the Notion API error body.
type apiError struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
