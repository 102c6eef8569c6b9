package apiquery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type filter struct {
	Name   string   `query:"Name"`
	Values []string `query:"Values"`
}

type describeParams struct {
	MaxResults int      `query:"MaxResults,omitempty"`
	NextToken  *string  `query:"NextToken"`
	Filters    []filter `query:"Filters"`
}

func TestMarshal_Records(t *testing.T) {
	type inner struct {
		Name  string `query:"Name"`
		Count int    `query:"Count"`
	}
	type params struct {
		Detail inner `query:"Detail"`
	}

	args := Marshal(params{Detail: inner{Name: "n", Count: 3}})
	require.Equal(t, Args{
		{Key: "Detail.Name", Value: "n"},
		{Key: "Detail.Count", Value: "3"},
	}, args)
}

func TestMarshal_MemberLists(t *testing.T) {
	args := Marshal(describeParams{
		MaxResults: 10,
		Filters: []filter{
			{Name: "state", Values: []string{"running", "stopped"}},
		},
	})
	require.Equal(t, Args{
		{Key: "MaxResults", Value: "10"},
		{Key: "Filters.member.1.Name", Value: "state"},
		{Key: "Filters.member.1.Values.member.1", Value: "running"},
		{Key: "Filters.member.1.Values.member.2", Value: "stopped"},
	}, args)
}

func TestMarshal_FlattenedLists(t *testing.T) {
	type tag struct {
		Key   string `query:"Key"`
		Value string `query:"Value"`
	}
	type params struct {
		Tags []tag `query:"Tags,flattened"`
	}

	args := Marshal(params{Tags: []tag{{Key: "env", Value: "prod"}}})
	require.Equal(t, Args{
		{Key: "Tags.1.Key", Value: "env"},
		{Key: "Tags.1.Value", Value: "prod"},
	}, args)
}

func TestMarshal_OptionalMembers(t *testing.T) {
	t.Run("NilOmitted", func(t *testing.T) {
		args := Marshal(describeParams{MaxResults: 1})
		require.Equal(t, Args{{Key: "MaxResults", Value: "1"}}, args)
	})

	t.Run("PresentIncluded", func(t *testing.T) {
		token := "abc"
		args := Marshal(describeParams{MaxResults: 1, NextToken: &token})
		require.Equal(t, Args{
			{Key: "MaxResults", Value: "1"},
			{Key: "NextToken", Value: "abc"},
		}, args)
	})
}

func TestMarshal_Omitempty(t *testing.T) {
	args := Marshal(describeParams{})
	require.Empty(t, args)
}

func TestMarshal_Dicts(t *testing.T) {
	type params struct {
		Attributes map[string]string `query:"Attributes"`
	}
	args := Marshal(params{Attributes: map[string]string{
		"VisibilityTimeout": "30",
		"DelaySeconds":      "0",
	}})
	// dict entries use their own keys, sorted, greatest frontmost
	require.Equal(t, Args{
		{Key: "VisibilityTimeout", Value: "30"},
		{Key: "DelaySeconds", Value: "0"},
	}, args)
}

func TestMarshal_Scalars(t *testing.T) {
	type params struct {
		Persistent bool      `query:"Persistent"`
		Ratio      float64   `query:"Ratio"`
		Since      time.Time `query:"Since,omitempty"`
	}

	t.Run("BoolAndFloat", func(t *testing.T) {
		args := Marshal(params{Persistent: true, Ratio: 0.5})
		require.Equal(t, Args{
			{Key: "Persistent", Value: "true"},
			{Key: "Ratio", Value: "0.5"},
		}, args)
	})

	t.Run("TimeRFC3339UTC", func(t *testing.T) {
		since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
		args := Marshal(params{Persistent: false, Since: since})
		require.Equal(t, Args{
			{Key: "Persistent", Value: "false"},
			{Key: "Ratio", Value: "0"},
			{Key: "Since", Value: "2024-05-01T11:00:00Z"},
		}, args)
	})
}

func TestMarshal_NonStruct(t *testing.T) {
	require.Nil(t, Marshal(nil))
	require.Nil(t, Marshal("plain"))
	var p *describeParams
	require.Nil(t, Marshal(p))
}

func TestMarshal_UntaggedFieldsSkipped(t *testing.T) {
	type params struct {
		Name   string `query:"Name"`
		Hidden string
	}
	args := Marshal(params{Name: "n", Hidden: "x"})
	require.Equal(t, Args{{Key: "Name", Value: "n"}}, args)
}
