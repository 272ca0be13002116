// Package mongostore implements dal.Backend on MongoDB using the
// doctors, patients and appointments collections of the web app.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/models"
)

// Collection names, matching the pluralised Mongoose model names
const (
	DoctorsCollection      = "doctors"
	PatientsCollection     = "patients"
	AppointmentsCollection = "appointments"
	locksCollection        = "locks"
)

// Store is the MongoDB implementation of dal.Backend
type Store struct {
	client       *mongo.Client
	doctors      *mongo.Collection
	patients     *mongo.Collection
	appointments *mongo.Collection
	locker       *Locker
}

var _ dal.Backend = (*Store)(nil)

// Connect dials MongoDB and verifies the primary is reachable
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	log.Info().Str("database", database).Msg("Creating MongoDB connection")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	log.Info().Msg("MongoDB connection created successfully")
	return &Store{
		client:       client,
		doctors:      db.Collection(DoctorsCollection),
		patients:     db.Collection(PatientsCollection),
		appointments: db.Collection(AppointmentsCollection),
		locker:       &Locker{collection: db.Collection(locksCollection)},
	}, nil
}

// Ping checks the primary
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Locker returns the seed lock
func (s *Store) Locker() dal.Locker {
	return s.locker
}

// EnsureIndexes creates the unique doctorid index and the sort/filter
// indexes used by the admin pages
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.doctors: {
			{Keys: bson.D{{Key: "doctorid", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		s.patients: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "verified", Value: 1}}},
		},
		s.appointments: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		s.locker.collection: {
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}

	for collection, models := range indexes {
		names, err := collection.Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection.Name(), err)
		}
		log.Info().Str("collection", collection.Name()).Strs("indexes", names).Msg("MongoDB indexes ensured")
	}
	return nil
}

func translateError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return dal.ErrNotFound
	}
	return err
}

func byCreatedAtDesc() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
}

func (s *Store) GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	var doc doctorDocument
	if err := s.doctors.FindOne(ctx, bson.M{"doctorid": doctorID}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("find doctor %s: %w", doctorID, translateError(err))
	}
	doctor := doc.model()
	return &doctor, nil
}

func doctorQuery(filter dal.DoctorFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}

func (s *Store) FindDoctors(ctx context.Context, filter dal.DoctorFilter) ([]models.Doctor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "doctorid", Value: 1}})
	cursor, err := s.doctors.Find(ctx, doctorQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find doctors: %w", err)
	}

	var docs []doctorDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode doctors: %w", err)
	}
	out := make([]models.Doctor, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.model())
	}
	return out, nil
}

func (s *Store) CountDoctors(ctx context.Context, filter dal.DoctorFilter) (int, error) {
	n, err := s.doctors.CountDocuments(ctx, doctorQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count doctors: %w", err)
	}
	return int(n), nil
}

func (s *Store) InsertDoctor(ctx context.Context, doctor *models.Doctor) error {
	if doctor.DoctorID == "" {
		return errors.New("doctorid is required")
	}
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = time.Now().UTC()
	}
	doctor.UpdatedAt = doctor.CreatedAt

	if _, err := s.doctors.InsertOne(ctx, newDoctorDocument(doctor)); err != nil {
		return fmt.Errorf("insert doctor %s: %w", doctor.DoctorID, err)
	}
	return nil
}

func (s *Store) UpdateDoctor(ctx context.Context, doctorID string, update models.DoctorUpdate) (*models.Doctor, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.LicenseVerified != nil {
		set["licenseVerified"] = *update.LicenseVerified
	}

	var doc doctorDocument
	err := s.doctors.FindOneAndUpdate(ctx,
		bson.M{"doctorid": doctorID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("update doctor %s: %w", doctorID, translateError(err))
	}
	doctor := doc.model()
	return &doctor, nil
}

func (s *Store) DeleteDoctor(ctx context.Context, doctorID string) error {
	res, err := s.doctors.DeleteOne(ctx, bson.M{"doctorid": doctorID})
	if err != nil {
		return fmt.Errorf("delete doctor %s: %w", doctorID, err)
	}
	if res.DeletedCount == 0 {
		return dal.ErrNotFound
	}
	return nil
}

func (s *Store) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc patientDocument
	if err := s.patients.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("find patient %s: %w", id, translateError(err))
	}
	patient := doc.model()
	return &patient, nil
}

func patientQuery(filter dal.PatientFilter) bson.M {
	query := bson.M{}
	if filter.Verified != "" {
		query["verified"] = filter.Verified
	}
	return query
}

func (s *Store) FindPatients(ctx context.Context, filter dal.PatientFilter) ([]models.Patient, error) {
	cursor, err := s.patients.Find(ctx, patientQuery(filter), byCreatedAtDesc())
	if err != nil {
		return nil, fmt.Errorf("find patients: %w", err)
	}

	var docs []patientDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode patients: %w", err)
	}
	out := make([]models.Patient, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.model())
	}
	return out, nil
}

func (s *Store) CountPatients(ctx context.Context, filter dal.PatientFilter) (int, error) {
	n, err := s.patients.CountDocuments(ctx, patientQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return int(n), nil
}

func (s *Store) PatientsByIDs(ctx context.Context, ids []string) (map[string]models.Patient, error) {
	out := make(map[string]models.Patient, len(ids))
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := objectID(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return out, nil
	}

	cursor, err := s.patients.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find patients by id: %w", err)
	}
	var docs []patientDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode patients: %w", err)
	}
	for _, doc := range docs {
		out[doc.ID.Hex()] = doc.model()
	}
	return out, nil
}

func (s *Store) InsertPatient(ctx context.Context, patient *models.Patient) error {
	oid := primitive.NewObjectID()
	if patient.ID != "" {
		parsed, err := primitive.ObjectIDFromHex(patient.ID)
		if err != nil {
			return fmt.Errorf("patient id %q is not an ObjectID: %w", patient.ID, err)
		}
		oid = parsed
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}

	if _, err := s.patients.InsertOne(ctx, newPatientDocument(patient, oid)); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	patient.ID = oid.Hex()
	return nil
}

func (s *Store) DeletePatient(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.patients.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete patient %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return dal.ErrNotFound
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc appointmentDocument
	if err := s.appointments.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("find appointment %s: %w", id, translateError(err))
	}
	appointment := doc.model()
	return &appointment, nil
}

func appointmentQuery(filter dal.AppointmentFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if !filter.CreatedSince.IsZero() {
		query["createdAt"] = bson.M{"$gte": filter.CreatedSince}
	}
	return query
}

func (s *Store) FindAppointments(ctx context.Context, filter dal.AppointmentFilter) ([]models.Appointment, error) {
	cursor, err := s.appointments.Find(ctx, appointmentQuery(filter), byCreatedAtDesc())
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}

	var docs []appointmentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	out := make([]models.Appointment, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.model())
	}
	return out, nil
}

func (s *Store) CountAppointments(ctx context.Context, filter dal.AppointmentFilter) (int, error) {
	n, err := s.appointments.CountDocuments(ctx, appointmentQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return int(n), nil
}

func (s *Store) InsertAppointment(ctx context.Context, appointment *models.Appointment) error {
	patientID, err := primitive.ObjectIDFromHex(appointment.PatientID)
	if err != nil {
		return fmt.Errorf("patient reference %q is not an ObjectID: %w", appointment.PatientID, err)
	}
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = time.Now().UTC()
	}

	doc := appointmentDocument{
		ID:        primitive.NewObjectID(),
		PatientID: patientID,
		DoctorID:  appointment.DoctorID,
		Date:      appointment.Date,
		TimeSlot:  appointment.TimeSlot,
		Reason:    appointment.Reason,
		Status:    appointment.Status,
		CreatedAt: appointment.CreatedAt,
	}
	if _, err := s.appointments.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	appointment.ID = doc.ID.Hex()
	return nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, id string, update models.AppointmentStatusUpdate) (*models.Appointment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	query := bson.M{"_id": oid}
	if update.Expected != "" {
		query["status"] = update.Expected
	}

	var doc appointmentDocument
	err = s.appointments.FindOneAndUpdate(ctx,
		query,
		bson.M{"$set": bson.M{"status": update.Status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) && update.Expected != "" {
		// distinguish a vanished document from a status that moved on
		if _, getErr := s.GetAppointment(ctx, id); getErr == nil {
			return nil, dal.ErrConflict
		}
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment %s: %w", id, translateError(err))
	}
	appointment := doc.model()
	return &appointment, nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.appointments.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete appointment %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return dal.ErrNotFound
	}
	return nil
}
