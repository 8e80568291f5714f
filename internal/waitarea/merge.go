// Package waitarea reconciles freshly extracted candidate records
// against the existing waiting-area collection. Merge is a pure
// function producing actions; applying them (and therefore all
// mutation ordering) belongs to the caller.
package waitarea

import (
	"github.com/google/uuid"

	"inkwell/internal/models"
)

// StructMatchThreshold is the minimum value-set overlap ratio
// (|intersection| / |union|) for a renamed record to still be
// recognized as the same thing by its content fingerprint.
const StructMatchThreshold = 0.3

// Merge computes the add/update actions needed to reconcile extracted
// candidates with the existing collection. Per candidate, in
// extraction order: exact-name match first, then structural match
// against not-yet-matched existing records, else a brand-new record.
// Duplicate candidate names within one batch are skipped after the
// first. A matched record produces an action only when its content
// actually changed. sourceDocID, when non-empty, becomes the sole
// related-document reference of brand-new records.
//
// Merge cannot fail: empty or malformed inputs degenerate to an empty
// action list.
func Merge(
	existingStates []models.StateRecord,
	existingTables []models.TableRecord,
	extractedStates []models.CandidateState,
	extractedTables []models.CandidateTable,
	sourceDocID string,
) models.MergeResult {
	result := models.MergeResult{}

	mergeStates(&result, existingStates, extractedStates, sourceDocID)
	mergeTables(&result, existingTables, extractedTables, sourceDocID)

	return result
}

func mergeStates(result *models.MergeResult, existing []models.StateRecord, extracted []models.CandidateState, sourceDocID string) {
	byName := make(map[string]*models.StateRecord, len(existing))
	for i := range existing {
		byName[existing[i].Name] = &existing[i]
	}
	matched := map[string]bool{}
	processed := map[string]bool{}

	for _, cand := range extracted {
		if processed[cand.Name] {
			continue
		}
		processed[cand.Name] = true

		if target := byName[cand.Name]; target != nil {
			matched[target.ID] = true
			if stateChanged(target, &cand) {
				result.Actions = append(result.Actions, models.MergeAction{
					Type:  models.ActionUpdateState,
					State: updatedState(target, &cand, target.Name),
				})
				result.Updated.States++
			}
			continue
		}

		if target := structuralStateMatch(&cand, existing, matched); target != nil {
			matched[target.ID] = true
			result.Actions = append(result.Actions, models.MergeAction{
				Type:  models.ActionUpdateState,
				State: updatedState(target, &cand, cand.Name),
			})
			result.Updated.States++
			continue
		}

		result.Actions = append(result.Actions, models.MergeAction{
			Type:  models.ActionAddState,
			State: newState(&cand, sourceDocID),
		})
		result.Added.States++
	}
}

func mergeTables(result *models.MergeResult, existing []models.TableRecord, extracted []models.CandidateTable, sourceDocID string) {
	byName := make(map[string]*models.TableRecord, len(existing))
	for i := range existing {
		byName[existing[i].Name] = &existing[i]
	}
	matched := map[string]bool{}
	processed := map[string]bool{}

	for _, cand := range extracted {
		if processed[cand.Name] {
			continue
		}
		processed[cand.Name] = true

		if target := byName[cand.Name]; target != nil {
			matched[target.ID] = true
			if tableChanged(target, &cand) {
				result.Actions = append(result.Actions, models.MergeAction{
					Type:  models.ActionUpdateTable,
					Table: updatedTable(target, &cand, target.Name),
				})
				result.Updated.Tables++
			}
			continue
		}

		if target := structuralTableMatch(&cand, existing, matched); target != nil {
			matched[target.ID] = true
			result.Actions = append(result.Actions, models.MergeAction{
				Type:  models.ActionUpdateTable,
				Table: updatedTable(target, &cand, cand.Name),
			})
			result.Updated.Tables++
			continue
		}

		result.Actions = append(result.Actions, models.MergeAction{
			Type:  models.ActionAddTable,
			Table: newTable(&cand, sourceDocID),
		})
		result.Added.Tables++
	}
}

// ----- change detection -----

// stateChanged reports whether applying the candidate would alter the
// existing record: value-set size or membership differs, or the
// candidate carries enum pairs whose count or per-key codes differ.
func stateChanged(existing *models.StateRecord, cand *models.CandidateState) bool {
	existingVals := stringSet(existing.Values)
	candVals := stringSet(cand.Values)
	if len(existingVals) != len(candVals) {
		return true
	}
	for v := range candVals {
		if !existingVals[v] {
			return true
		}
	}
	if len(cand.EnumPairs) > 0 {
		if len(existing.EnumPairs) != len(cand.EnumPairs) {
			return true
		}
		existingByKey := make(map[string]string, len(existing.EnumPairs))
		for _, p := range existing.EnumPairs {
			existingByKey[p.Key] = p.Value
		}
		for _, p := range cand.EnumPairs {
			old, ok := existingByKey[p.Key]
			if !ok {
				return true
			}
			if p.Value != "" && old != p.Value {
				return true
			}
		}
	}
	return false
}

// tableChanged reports whether applying the candidate would alter the
// existing record: field-name sets differ, the candidate supplies a
// different non-empty description, or any same-named field differs in
// normalized type, non-empty description, or required flag.
func tableChanged(existing *models.TableRecord, cand *models.CandidateTable) bool {
	if len(existing.Fields) != len(cand.Fields) {
		return true
	}
	existingNames := map[string]bool{}
	for _, f := range existing.Fields {
		existingNames[f.Name] = true
	}
	candNames := map[string]bool{}
	for _, f := range cand.Fields {
		candNames[f.Name] = true
	}
	for n := range candNames {
		if !existingNames[n] {
			return true
		}
	}
	for n := range existingNames {
		if !candNames[n] {
			return true
		}
	}

	if cand.Description != "" && existing.Description != "" && cand.Description != existing.Description {
		return true
	}

	existingByName := make(map[string]*models.FieldRecord, len(existing.Fields))
	for i := range existing.Fields {
		existingByName[existing.Fields[i].Name] = &existing.Fields[i]
	}
	for _, cf := range cand.Fields {
		ef := existingByName[cf.Name]
		if ef == nil {
			return true
		}
		if models.NormalizeFieldType(string(ef.Type)) != models.NormalizeFieldType(cf.Type) {
			return true
		}
		if cf.Description != "" && ef.Description != cf.Description {
			return true
		}
		if cf.Required != ef.Required {
			return true
		}
	}
	return false
}

// ----- structural matching -----

func structuralStateMatch(cand *models.CandidateState, existing []models.StateRecord, matched map[string]bool) *models.StateRecord {
	candVals := stringSet(cand.Values)
	if len(candVals) == 0 {
		return nil
	}
	var best *models.StateRecord
	bestRatio := 0.0
	for i := range existing {
		if matched[existing[i].ID] {
			continue
		}
		ratio := overlapRatio(candVals, stringSet(existing[i].Values))
		if ratio > bestRatio && ratio >= StructMatchThreshold {
			bestRatio = ratio
			best = &existing[i]
		}
	}
	return best
}

func structuralTableMatch(cand *models.CandidateTable, existing []models.TableRecord, matched map[string]bool) *models.TableRecord {
	candNames := map[string]bool{}
	for _, f := range cand.Fields {
		candNames[f.Name] = true
	}
	if len(candNames) == 0 {
		return nil
	}
	var best *models.TableRecord
	bestRatio := 0.0
	for i := range existing {
		if matched[existing[i].ID] {
			continue
		}
		existingNames := map[string]bool{}
		for _, f := range existing[i].Fields {
			existingNames[f.Name] = true
		}
		ratio := overlapRatio(candNames, existingNames)
		if ratio > bestRatio && ratio >= StructMatchThreshold {
			bestRatio = ratio
			best = &existing[i]
		}
	}
	return best
}

func overlapRatio(a, b map[string]bool) float64 {
	intersection := 0
	union := len(b)
	for v := range a {
		if b[v] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ----- record construction -----

// updatedState builds the update payload for a matched state. Enum
// pairs are keyed by display key, extraction-authoritative: the
// candidate's pairs replace the record's, carrying over the previous
// code only when the candidate supplies none. Values are re-derived
// from the merged pair keys. name handles the structural-match rename.
func updatedState(existing *models.StateRecord, cand *models.CandidateState, name string) *models.StateRecord {
	pairs := replaceEnumPairs(existing.EnumPairs, candEnumPairs(cand))
	values := make([]string, len(pairs))
	for i, p := range pairs {
		values[i] = p.Key
	}

	updated := *existing
	updated.Name = name
	updated.Values = values
	updated.EnumPairs = pairs
	if cand.Description != "" {
		updated.Description = cand.Description
	}
	return &updated
}

func newState(cand *models.CandidateState, sourceDocID string) *models.StateRecord {
	var relDocs []string
	if sourceDocID != "" {
		relDocs = []string{sourceDocID}
	}
	return &models.StateRecord{
		ID:              uuid.NewString(),
		Name:            cand.Name,
		Values:          append([]string(nil), cand.Values...),
		EnumPairs:       candEnumPairs(cand),
		Description:     cand.Description,
		RelatedDocIDs:   relDocs,
		RelatedTableIDs: []string{},
	}
}

// candEnumPairs returns the candidate's enum pairs, deriving
// empty-code pairs from the value list when none were supplied.
func candEnumPairs(cand *models.CandidateState) []models.EnumPair {
	if len(cand.EnumPairs) > 0 {
		return append([]models.EnumPair(nil), cand.EnumPairs...)
	}
	pairs := make([]models.EnumPair, len(cand.Values))
	for i, v := range cand.Values {
		pairs[i] = models.EnumPair{Key: v}
	}
	return pairs
}

func replaceEnumPairs(existing, extracted []models.EnumPair) []models.EnumPair {
	prevByKey := make(map[string]string, len(existing))
	for _, p := range existing {
		prevByKey[p.Key] = p.Value
	}
	out := make([]models.EnumPair, len(extracted))
	for i, p := range extracted {
		value := p.Value
		if value == "" {
			value = prevByKey[p.Key]
		}
		out[i] = models.EnumPair{Key: p.Key, Value: value}
	}
	return out
}

// updatedTable builds the update payload for a matched table. Fields
// are keyed by name, extraction-authoritative: a same-named existing
// field keeps its id, primary-key flag and state reference but adopts
// the candidate's type, required flag and (non-empty) description;
// brand-new field names get fresh ids.
func updatedTable(existing *models.TableRecord, cand *models.CandidateTable, name string) *models.TableRecord {
	updated := *existing
	updated.Name = name
	updated.Fields = replaceFields(existing.Fields, cand.Fields)
	if cand.Description != "" {
		updated.Description = cand.Description
	}
	return &updated
}

func replaceFields(existing []models.FieldRecord, extracted []models.CandidateField) []models.FieldRecord {
	prevByName := make(map[string]*models.FieldRecord, len(existing))
	for i := range existing {
		prevByName[existing[i].Name] = &existing[i]
	}
	out := make([]models.FieldRecord, 0, len(extracted))
	for _, cf := range extracted {
		if prev := prevByName[cf.Name]; prev != nil {
			field := *prev
			field.Type = models.NormalizeFieldType(cf.Type)
			field.Required = cf.Required
			if cf.Description != "" {
				field.Description = cf.Description
			}
			out = append(out, field)
			continue
		}
		out = append(out, models.FieldRecord{
			ID:          uuid.NewString(),
			Name:        cf.Name,
			Type:        models.NormalizeFieldType(cf.Type),
			Description: cf.Description,
			Required:    cf.Required,
		})
	}
	return out
}

func newTable(cand *models.CandidateTable, sourceDocID string) *models.TableRecord {
	var relDocs []string
	if sourceDocID != "" {
		relDocs = []string{sourceDocID}
	}
	fields := make([]models.FieldRecord, 0, len(cand.Fields))
	for _, cf := range cand.Fields {
		fields = append(fields, models.FieldRecord{
			ID:          uuid.NewString(),
			Name:        cf.Name,
			Type:        models.NormalizeFieldType(cf.Type),
			Description: cf.Description,
			Required:    cf.Required,
		})
	}
	return &models.TableRecord{
		ID:            uuid.NewString(),
		Name:          cand.Name,
		Description:   cand.Description,
		Fields:        fields,
		RelatedDocIDs: relDocs,
	}
}

func stringSet(ss []string) map[string]bool {
	set := make(map[string]bool, len(ss))
	for _, s := range ss {
		set[s] = true
	}
	return set
}
