package events

import (
	"encoding/json"
	"fmt"
)

// SetIssueData sets the Data field with IssueData in a type-safe way.
func (e *Event) SetIssueData(data IssueData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert IssueData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetIssueData retrieves IssueData from the Data field.
func (e *Event) GetIssueData() (*IssueData, error) {
	var data IssueData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse IssueData: %w", err)
	}
	return &data, nil
}

// SetTagsExtractedData sets the Data field with TagsExtractedData in a type-safe way.
func (e *Event) SetTagsExtractedData(data TagsExtractedData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert TagsExtractedData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetTagsExtractedData retrieves TagsExtractedData from the Data field.
func (e *Event) GetTagsExtractedData() (*TagsExtractedData, error) {
	var data TagsExtractedData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse TagsExtractedData: %w", err)
	}
	return &data, nil
}

// SetSummaryReportData sets the Data field with SummaryReportData in a type-safe way.
func (e *Event) SetSummaryReportData(data SummaryReportData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert SummaryReportData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetSummaryReportData retrieves SummaryReportData from the Data field.
func (e *Event) GetSummaryReportData() (*SummaryReportData, error) {
	var data SummaryReportData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse SummaryReportData: %w", err)
	}
	return &data, nil
}

// structToMap converts a struct to map[string]interface{} using JSON marshaling.
func structToMap(data interface{}) (map[string]interface{}, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(bytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// mapToStruct converts a map[string]interface{} to a struct using JSON unmarshaling.
func mapToStruct(dataMap map[string]interface{}, target interface{}) error {
	bytes, err := json.Marshal(dataMap)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, target)
}
