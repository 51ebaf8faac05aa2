package grade

import "strconv"

// recordSlots is the number of scholastic records the SF10-ES template always renders.
const recordSlots = 6

type partition struct {
	first    *GradeRecord
	quarters [4]*GradeRecord
}

// Aggregate folds the decrypted quarter records of one learner into one ScholasticRecord
// per grade level, Grade 1 to Grade 6 in order. Levels without records get a placeholder.
//
// Metadata of a level (adviser, section, school year) comes from the first record seen for
// that level. When two records share a level & quarter, the first one is kept.
// Records with an unknown grade level or quarter are skipped.
func Aggregate(records []GradeRecord, school School) []ScholasticRecord {
	parts := make(map[int]*partition, recordSlots)
	for i := range records {
		rec := &records[i]
		n, ok := GradeNumber(rec.GradeLevel)
		if !ok || n > recordSlots {
			continue
		}
		part, ok := parts[n]
		if !ok {
			part = new(partition)
			parts[n] = part
		}
		if part.first == nil {
			part.first = rec
		}
		slot, ok := QuarterSlot(rec.Quarter)
		if !ok || part.quarters[slot] != nil {
			continue
		}
		part.quarters[slot] = rec
	}

	out := make([]ScholasticRecord, 0, recordSlots)
	for n := 1; n <= recordSlots; n++ {
		out = append(out, buildRecord(GradeLevelName(n), parts[n], school))
	}
	return out
}

// Placeholder is an empty scholastic record for a grade level without grades.
func Placeholder(gradeLevel string, school School) ScholasticRecord {
	return buildRecord(gradeLevel, nil, school)
}

func buildRecord(gradeLevel string, part *partition, school School) ScholasticRecord {
	rec := ScholasticRecord{
		School:      school.Name,
		SchoolID:    school.ID,
		District:    school.District,
		Division:    school.Division,
		Region:      school.Region,
		GradeLevel:  gradeLevel,
		Grades:      make(map[string]Rating, len(Subjects)+1),
		Placeholder: part == nil,
	}
	for _, name := range TemplateRows() {
		rec.Grades[name] = Rating{}
	}
	if part == nil {
		return rec
	}

	rec.Section = part.first.Section
	rec.Adviser = part.first.Adviser
	rec.SchoolYear = part.first.SchoolYear
	rec.Signature = part.first.Adviser

	finals := make([]string, 0, len(Subjects))
	for _, sub := range Subjects {
		var rating Rating
		for slot, qrec := range part.quarters {
			if qrec != nil {
				rating.setQuarter(slot, formatScore(qrec.Get(sub.Column)))
			}
		}
		rating.Final, rating.Remarks = FinalRating(rating.Q1, rating.Q2, rating.Q3, rating.Q4)
		if rating.Final != "" {
			finals = append(finals, rating.Final)
		}
		rec.Grades[sub.Name] = rating
	}

	var ga Rating
	for slot, qrec := range part.quarters {
		if qrec != nil {
			ga.setQuarter(slot, formatScore(ComputeAverage(qrec.Scores)))
		}
	}
	ga.Final, ga.Remarks = FinalRating(finals...)
	rec.Grades[GeneralAverage] = ga
	return rec
}

// HasGrades reports whether at least one subject of the record has a final rating.
func (r ScholasticRecord) HasGrades() bool {
	return r.Grades[GeneralAverage].Final != ""
}

// GeneralAverageFinal returns the final general average, or 0 when there is none.
func (r ScholasticRecord) GeneralAverageFinal() int {
	n, _ := strconv.Atoi(r.Grades[GeneralAverage].Final)
	return n
}
