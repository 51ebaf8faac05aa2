package dummydb

// DB is an in-memory stand-in for the SQL database, used by tests & local runs.
type DB struct {
	user         *userTable
	grade        *gradeTable
	student      *studentTable
	printRequest *printRequestTable
}

func Open() (*DB, error) {
	db := &DB{
		user:         newUserTable(),
		grade:        newGradeTable(),
		student:      newStudentTable(),
		printRequest: newPrintRequestTable(),
	}
	return db, nil
}
